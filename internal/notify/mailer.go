package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// ErrNotConfigured is recorded for every recipient when mail is not configured.
var ErrNotConfigured = errors.New("outbound mail not configured")

// Mailer is the outbound-mail collaborator. Acceptance by the transport is
// the only delivery signal.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
	Configured() bool
}

// Unconfigured is the Mailer used when sender identity or credentials are absent.
type Unconfigured struct{}

func (Unconfigured) Send(context.Context, string, string, string) error { return ErrNotConfigured }
func (Unconfigured) Configured() bool                                   { return false }

// SMTPConfig holds SMTP transport settings. A relay without credentials must
// be opted into with AllowAnonymous.
type SMTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	AllowAnonymous bool
	UseTLS         bool
	From           string
}

// SMTPMailer sends mail over SMTP, upgrading with STARTTLS when UseTLS is set.
// Every network step is bounded by the deadline of the Send context.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTP mailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Configured() bool {
	if m.cfg.Host == "" || m.cfg.From == "" {
		return false
	}
	return m.cfg.AllowAnonymous || (m.cfg.Username != "" && m.cfg.Password != "")
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before sending email: %w", err)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set SMTP deadline: %w", err)
		}
	}

	// NewClient blocks on the server greeting, so it must run after the deadline is set.
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to read SMTP greeting: %w", err)
	}
	defer client.Close()

	if m.cfg.UseTLS {
		if err = client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err = client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err = w.Write(buildMessage(m.cfg.From, to, subject, html)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// headerValue folds line breaks so a value cannot start a new header.
func headerValue(s string) string {
	return headerBreaks.Replace(s)
}

func buildMessage(from, to, subject, html string) []byte {
	var b strings.Builder
	b.WriteString("From: " + headerValue(from) + "\r\n")
	b.WriteString("To: " + headerValue(to) + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("UTF-8", headerValue(subject)) + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}

// SESService is the subset of the SES client used here.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends mail through Amazon SES.
type SESMailer struct {
	client SESService
	from   string
}

// NewSESMailer creates an SES mailer with the default AWS credential chain.
func NewSESMailer(ctx context.Context, region, from string) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSESMailerFromConfig(ctx, cfg, from)
}

// NewSESMailerFromConfig creates an SES mailer, failing when cfg yields no
// usable credentials.
func NewSESMailerFromConfig(ctx context.Context, cfg aws.Config, from string) (*SESMailer, error) {
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("resolve AWS credentials: %w", ErrNotConfigured)
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve AWS credentials: %w", err)
	}
	if !creds.HasKeys() {
		return nil, fmt.Errorf("resolve AWS credentials: %w", ErrNotConfigured)
	}
	return &SESMailer{client: ses.NewFromConfig(cfg), from: from}, nil
}

// NewSESMailerWithClient creates an SES mailer on an existing client.
func NewSESMailerWithClient(client SESService, from string) *SESMailer {
	return &SESMailer{client: client, from: from}
}

func (m *SESMailer) Configured() bool {
	return m.client != nil && m.from != ""
}

func (m *SESMailer) Send(ctx context.Context, to, subject, html string) error {
	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(headerValue(subject)), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(m.from),
	})
	return err
}

var (
	_ Mailer = Unconfigured{}
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*SESMailer)(nil)
)
