package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	xhtml "golang.org/x/net/html"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	TemplateInvoice        = "invoice.html"
	TemplatePaymentReceipt = "payment_receipt.html"
)

// EmailTemplate is implemented by the data passed to a template.
type EmailTemplate interface {
	Subject() string
	TemplateName() string
}

// InvoiceEmail is the data for the message that accompanies an invoice.
type InvoiceEmail struct {
	CompanyName   string
	ClientName    string
	InvoiceNumber string
	InvoiceDate   string
	DueDate       string
	Total         string
	Notes         string
}

func (e InvoiceEmail) Subject() string {
	return fmt.Sprintf("Invoice %s from %s", e.InvoiceNumber, e.CompanyName)
}

func (e InvoiceEmail) TemplateName() string {
	return TemplateInvoice
}

// PaymentReceiptEmail is the data for a payment receipt.
type PaymentReceiptEmail struct {
	CompanyName   string
	ClientName    string
	InvoiceNumber string
	Amount        string
	Balance       string
	PaidInFull    bool
}

func (e PaymentReceiptEmail) Subject() string {
	return fmt.Sprintf("Payment received for invoice %s", e.InvoiceNumber)
}

func (e PaymentReceiptEmail) TemplateName() string {
	return TemplatePaymentReceipt
}

// Templates renders the embedded message templates. Each template is
// parsed together with the shared layout.
type Templates struct {
	set map[string]*template.Template
}

// LoadTemplates parses the embedded templates.
func LoadTemplates() (*Templates, error) {
	t := &Templates{set: make(map[string]*template.Template)}
	for _, name := range []string{TemplateInvoice, TemplatePaymentReceipt} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse email template %s: %w", name, err)
		}
		t.set[name] = tmpl
	}
	return t, nil
}

// Rendered is a ready-to-send subject and body pair.
type Rendered struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// Render executes the template named by data.
func (t *Templates) Render(data EmailTemplate) (*Rendered, error) {
	tmpl, ok := t.set[data.TemplateName()]
	if !ok {
		return nil, ErrTemplateNotFound(data.TemplateName())
	}

	subject := data.Subject()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email_layout", templateView(subject, data)); err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", data.TemplateName(), err)
	}

	html := buf.String()
	return &Rendered{
		Subject:  subject,
		HTMLBody: html,
		TextBody: generatePlainText(html),
	}, nil
}

// templateView flattens the data struct into a map so the layout can read
// Subject alongside the template's own fields.
func templateView(subject string, data EmailTemplate) map[string]any {
	m := map[string]any{"Subject": subject}
	switch d := data.(type) {
	case InvoiceEmail:
		m["CompanyName"] = d.CompanyName
		m["ClientName"] = d.ClientName
		m["InvoiceNumber"] = d.InvoiceNumber
		m["InvoiceDate"] = d.InvoiceDate
		m["DueDate"] = d.DueDate
		m["Total"] = d.Total
		m["Notes"] = d.Notes
	case PaymentReceiptEmail:
		m["CompanyName"] = d.CompanyName
		m["ClientName"] = d.ClientName
		m["InvoiceNumber"] = d.InvoiceNumber
		m["Amount"] = d.Amount
		m["Balance"] = d.Balance
		m["PaidInFull"] = d.PaidInFull
	}
	return m
}

// blockTags end a line in the plain-text rendering.
var blockTags = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true,
	"tr": true, "li": true, "table": true, "br": true,
}

// generatePlainText derives the text part from the rendered HTML. Link
// targets are kept in parentheses after the link text.
func generatePlainText(body string) string {
	var (
		b    strings.Builder
		skip int
		href string
	)
	z := xhtml.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			return tidyLines(b.String())
		case xhtml.TextToken:
			if skip == 0 {
				b.WriteString(strings.ReplaceAll(string(z.Text()), "\n", " "))
			}
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken, xhtml.EndTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			switch {
			case tag == "style" || tag == "head" || tag == "title":
				if tt == xhtml.StartTagToken {
					skip++
				} else if tt == xhtml.EndTagToken && skip > 0 {
					skip--
				}
			case tag == "a" && tt == xhtml.StartTagToken:
				href = ""
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "href" {
						href = string(val)
					}
				}
			case tag == "a" && tt == xhtml.EndTagToken:
				if href != "" && skip == 0 {
					b.WriteString(" (" + href + ")")
				}
				href = ""
			case tag == "td" && tt == xhtml.EndTagToken:
				b.WriteString("  ")
			case blockTags[tag] && (tt != xhtml.StartTagToken || tag == "br"):
				b.WriteString("\n")
			}
		}
	}
}

// tidyLines trims every line and drops the empty ones.
func tidyLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
