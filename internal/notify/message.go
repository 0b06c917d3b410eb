package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"storefront-restock-api/internal/catalog"
	"storefront-restock-api/internal/model"
)

// Message is the rendered content shared by every recipient of one pass.
type Message struct {
	Subject string
	HTML    string
}

type messageData struct {
	StoreName    string
	ProductName  string
	VariantLabel string
	ProductURL   string
}

var bodyTemplate = template.Must(template.New("restock").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Good news!</h2>
  <p><strong>{{.ProductName}}</strong>{{if .VariantLabel}} ({{.VariantLabel}}){{end}} is back in stock{{if .StoreName}} at {{.StoreName}}{{end}}.</p>
  {{if .ProductURL}}<p><a href="{{.ProductURL}}">Shop now</a></p>{{end}}
  <p style="font-size: 12px; color: #888;">You are receiving this email because you asked to be notified when this item was available again.</p>
</body>
</html>
`))

// Subject returns the notification subject line.
func Subject(productName, variantLabel string) string {
	if variantLabel != "" {
		return fmt.Sprintf("%s (%s) is back in stock", productName, variantLabel)
	}
	return fmt.Sprintf("%s is back in stock", productName)
}

// ProductURL joins the storefront base URL and the product slug.
func ProductURL(siteURL, slug string) string {
	if siteURL == "" || slug == "" {
		return ""
	}
	return strings.TrimRight(siteURL, "/") + "/products/" + slug
}

// BuildMessage renders the notification for a key. A nil product falls back
// to the raw identifiers.
func BuildMessage(product *model.Product, key model.InventoryKey, siteURL, storeName string) (Message, error) {
	data := messageData{
		StoreName:   storeName,
		ProductName: key.ProductID,
	}
	if key.Variant != "" {
		data.VariantLabel = key.Variant
	}

	if product != nil {
		if product.Name != "" {
			data.ProductName = product.Name
		}
		if label := catalog.VariantLabel(product, key.Variant); label != "" {
			data.VariantLabel = label
		}
		slug := product.Slug
		if slug == "" {
			slug = product.ID
		}
		data.ProductURL = ProductURL(siteURL, slug)
	} else {
		data.ProductURL = ProductURL(siteURL, key.ProductID)
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render notification: %w", err)
	}

	return Message{
		Subject: Subject(data.ProductName, data.VariantLabel),
		HTML:    buf.String(),
	}, nil
}
