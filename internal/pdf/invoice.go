// Package pdf renders invoices to PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// InvoiceData is the normalized payload rendered into an invoice document.
type InvoiceData struct {
	InvoiceNumber string
	Date          string
	DueDate       string
	Status        string
	Client        ClientData
	Company       CompanyData
	Items         []InvoiceItem
	Subtotal      decimal.Decimal
	Taxes         []TaxLine
	Total         decimal.Decimal
	AmountPaid    decimal.Decimal
	Notes         string
	Currency      string
}

type ClientData struct {
	Name    string
	Address string
	Email   string
	Phone   string
}

type CompanyData struct {
	Name    string
	Address string
	Email   string
	Phone   string
}

type InvoiceItem struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

type TaxLine struct {
	Name   string
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// Renderer turns invoice data into a document.
type Renderer interface {
	Render(data InvoiceData) ([]byte, error)
}

// FPDFRenderer renders A4 invoices with go-pdf/fpdf.
type FPDFRenderer struct{}

// NewRenderer returns the default renderer.
func NewRenderer() *FPDFRenderer {
	return &FPDFRenderer{}
}

func (r *FPDFRenderer) Render(data InvoiceData) ([]byte, error) {
	return InvoicePDF(data)
}

// InvoicePDF renders data to an A4 PDF.
func InvoicePDF(data InvoiceData) ([]byte, error) {
	if data.InvoiceNumber == "" {
		return nil, fmt.Errorf("invoice number is required")
	}

	currency := data.Currency
	if currency == "" {
		currency = "$"
	}
	money := func(d decimal.Decimal) string {
		return currency + d.StringFixed(2)
	}

	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle("Invoice "+data.InvoiceNumber, true)
	doc.SetMargins(15, 15, 15)
	doc.AddPage()

	// Header: company on the left, invoice meta on the right.
	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(110, 9, tr(data.Company.Name), "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "B", 22)
	doc.CellFormat(70, 9, "INVOICE", "", 1, "R", false, 0, "")

	doc.SetFont("Helvetica", "", 10)
	companyLines := nonEmpty(strings.Split(data.Company.Address, "\n")...)
	companyLines = append(companyLines, nonEmpty(data.Company.Email, data.Company.Phone)...)
	meta := []string{
		"Number: " + data.InvoiceNumber,
		"Date: " + data.Date,
		"Due: " + data.DueDate,
	}
	if data.Status != "" {
		meta = append(meta, "Status: "+data.Status)
	}
	for i := 0; i < max(len(companyLines), len(meta)); i++ {
		left, right := "", ""
		if i < len(companyLines) {
			left = companyLines[i]
		}
		if i < len(meta) {
			right = meta[i]
		}
		doc.CellFormat(110, 5, tr(left), "", 0, "L", false, 0, "")
		doc.CellFormat(70, 5, tr(right), "", 1, "R", false, 0, "")
	}
	doc.Ln(8)

	// Bill to
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 6, "Bill To", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	clientLines := nonEmpty(data.Client.Name)
	clientLines = append(clientLines, nonEmpty(strings.Split(data.Client.Address, "\n")...)...)
	clientLines = append(clientLines, nonEmpty(data.Client.Email, data.Client.Phone)...)
	for _, line := range clientLines {
		doc.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	}
	doc.Ln(6)

	// Items table
	widths := []float64{95, 20, 32.5, 32.5}
	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(235, 235, 235)
	for i, h := range []string{"Description", "Qty", "Rate", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		doc.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 10)
	for _, item := range data.Items {
		doc.CellFormat(widths[0], 7, tr(item.Description), "1", 0, "L", false, 0, "")
		doc.CellFormat(widths[1], 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		doc.CellFormat(widths[2], 7, money(item.UnitPrice), "1", 0, "R", false, 0, "")
		doc.CellFormat(widths[3], 7, money(item.Total), "1", 1, "R", false, 0, "")
	}
	doc.Ln(4)

	// Totals
	labelW, valueW := widths[0]+widths[1]+widths[2], widths[3]
	totalRow := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		doc.SetFont("Helvetica", style, 10)
		doc.CellFormat(labelW, 6, tr(label), "", 0, "R", false, 0, "")
		doc.CellFormat(valueW, 6, value, "", 1, "R", false, 0, "")
	}
	totalRow("Subtotal", money(data.Subtotal), false)
	for _, tax := range data.Taxes {
		totalRow(fmt.Sprintf("%s (%s%%)", tax.Name, tax.Rate.String()), money(tax.Amount), false)
	}
	totalRow("Total", money(data.Total), true)
	if data.AmountPaid.IsPositive() {
		totalRow("Paid", money(data.AmountPaid), false)
		totalRow("Balance Due", money(data.Total.Sub(data.AmountPaid)), true)
	}

	if data.Notes != "" {
		doc.Ln(8)
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(0, 6, "Notes", "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, 5, tr(data.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
