package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Admin    AdminConfig
	Cache    CacheConfig
	Store    StoreConfig
	Catalog  CatalogConfig
	Mail     MailConfig
	Notify   NotifyConfig
	Backfill BackfillConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"restock-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
}

// AdminConfig holds administrative credentials.
type AdminConfig struct {
	APIKeys  []string      `envconfig:"ADMIN_API_KEYS"` // comma separated
	LoginKey string        `envconfig:"ADMIN_LOGIN_KEY" default:""`
	TokenTTL time.Duration `envconfig:"ADMIN_TOKEN_TTL" default:"1h"`
}

// CacheConfig holds catalog cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// StoreConfig holds inventory and subscription database settings.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite or postgres
	Path string `envconfig:"STORE_PATH" default:"./data/restock.db"`
	// PostgreSQL settings
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"5432"`
	Name     string `envconfig:"STORE_DB_NAME" default:"storefront"`
	User     string `envconfig:"STORE_DB_USER" default:"postgres"`
	Password string `envconfig:"STORE_DB_PASS" default:""`
	SSLMode  string `envconfig:"STORE_DB_SSLMODE" default:"disable"`
}

// CatalogConfig selects where product metadata comes from.
type CatalogConfig struct {
	Source string `envconfig:"CATALOG_SOURCE" default:"file"` // file or mysql
	Path   string `envconfig:"CATALOG_PATH" default:"./data/catalog.json"`
	// MySQL settings (storefront database)
	Host     string `envconfig:"CATALOG_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"CATALOG_DB_PORT" default:"3306"`
	Name     string `envconfig:"CATALOG_DB_NAME" default:"storefront"`
	User     string `envconfig:"CATALOG_DB_USER" default:"root"`
	Password string `envconfig:"CATALOG_DB_PASS" default:""`
}

// MailConfig holds outbound mail settings. Leaving From empty disables
// delivery; matched subscribers are then counted as send errors.
type MailConfig struct {
	Transport          string `envconfig:"MAIL_TRANSPORT" default:"smtp"` // smtp or ses
	From               string `envconfig:"MAIL_FROM" default:""`
	SMTPHost           string `envconfig:"SMTP_HOST" default:""`
	SMTPPort           int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername       string `envconfig:"SMTP_USERNAME" default:""`
	SMTPPassword       string `envconfig:"SMTP_PASSWORD" default:""`
	SMTPAllowAnonymous bool   `envconfig:"SMTP_ALLOW_ANONYMOUS" default:"false"`
	SMTPUseTLS         bool   `envconfig:"SMTP_USE_TLS" default:"true"`
	AWSRegion          string `envconfig:"AWS_REGION" default:""`
}

// NotifyConfig holds notification dispatch settings.
type NotifyConfig struct {
	Concurrency int           `envconfig:"NOTIFY_CONCURRENCY" default:"4"`
	SendTimeout time.Duration `envconfig:"NOTIFY_SEND_TIMEOUT" default:"20s"`
	SiteURL     string        `envconfig:"SITE_URL" default:"http://localhost:3000"`
	StoreName   string        `envconfig:"STORE_NAME" default:"Storefront"`
}

// BackfillConfig controls the periodic createMissing run. Zero disables it.
type BackfillConfig struct {
	Interval time.Duration `envconfig:"BACKFILL_INTERVAL" default:"0s"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Name, s.SSLMode)
}

// DSN returns the MySQL data source name.
func (c *CatalogConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// Configured reports whether a sender identity and transport credentials are
// present. SES credentials come from the AWS chain and are checked when the
// mailer is built; SMTP needs a username and password unless the relay is
// explicitly marked anonymous.
func (m *MailConfig) Configured() bool {
	if strings.TrimSpace(m.From) == "" {
		return false
	}
	switch m.Transport {
	case "ses":
		return m.AWSRegion != ""
	default:
		if m.SMTPHost == "" {
			return false
		}
		return m.SMTPAllowAnonymous || (m.SMTPUsername != "" && m.SMTPPassword != "")
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Notify.Concurrency < 1 {
		cfg.Notify.Concurrency = 1
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
