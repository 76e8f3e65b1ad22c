package pdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/vantegra/fieldgo/internal/models"
)

// Generator renders quotes and invoices as A4 PDFs.
type Generator struct {
	company string
}

func NewGenerator() *Generator {
	company := os.Getenv("COMPANY_NAME")
	if company == "" {
		company = "FieldGo" // Default fallback
	}
	return &Generator{company: company}
}

// document is the layout-level view of a quote or an invoice.
type document struct {
	title    string
	number   string
	issued   time.Time
	deadline string // "Due ..." or "Valid until ..."
	stamp    string // extra status line, e.g. PAID
	lines    []models.LineItem
	subtotal float64
	taxRate  float64
	total    float64
	notes    string
	qr       string
}

// Invoice renders one invoice for printing or download.
func (g *Generator) Invoice(inv *models.Invoice, client *models.Client) ([]byte, error) {
	doc := document{
		title:    "INVOICE",
		number:   inv.Number,
		issued:   inv.CreatedAt,
		subtotal: inv.Subtotal,
		taxRate:  inv.TaxRate,
		total:    inv.Total,
		notes:    inv.Notes,
		qr:       fmt.Sprintf("fieldgo://invoices/%s", inv.ID),
	}
	if inv.DueAt != nil {
		doc.deadline = "Due " + inv.DueAt.Format("02.01.2006")
	}
	if inv.Status == models.InvoicePaid && inv.PaidAt != nil {
		doc.stamp = "PAID " + inv.PaidAt.Format("02.01.2006")
	}
	if inv.Status == models.InvoiceVoid {
		doc.stamp = "VOID"
	}
	if err := json.Unmarshal(inv.Lines, &doc.lines); err != nil && len(inv.Lines) > 0 {
		return nil, fmt.Errorf("invoice %s has malformed lines: %w", inv.ID, err)
	}
	return g.render(doc, client)
}

// Quote renders one quote for printing or download.
func (g *Generator) Quote(q *models.Quote, client *models.Client) ([]byte, error) {
	doc := document{
		title:    "QUOTE",
		number:   q.Number,
		issued:   q.CreatedAt,
		subtotal: q.Subtotal,
		taxRate:  q.TaxRate,
		total:    q.Total,
		notes:    q.Notes,
		qr:       fmt.Sprintf("fieldgo://quotes/%s", q.ID),
	}
	if q.ValidUntil != nil {
		doc.deadline = "Valid until " + q.ValidUntil.Format("02.01.2006")
	}
	if err := json.Unmarshal(q.Lines, &doc.lines); err != nil && len(q.Lines) > 0 {
		return nil, fmt.Errorf("quote %s has malformed lines: %w", q.ID, err)
	}
	return g.render(doc, client)
}

func (g *Generator) render(doc document, client *models.Client) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth := 210.0
	contentW := pageWidth - 30 // minus both margins

	// Header: company left, document title right
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(contentW/2, 10, tr(g.company), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 10, doc.title, "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(contentW/2, 5, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 5, "No. "+doc.number, "", 1, "R", false, 0, "")
	pdf.CellFormat(contentW/2, 5, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 5, doc.issued.Format("02.01.2006"), "", 1, "R", false, 0, "")
	if doc.deadline != "" {
		pdf.CellFormat(contentW/2, 5, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW/2, 5, doc.deadline, "", 1, "R", false, 0, "")
	}
	if doc.stamp != "" {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(200, 30, 30)
		pdf.CellFormat(contentW/2, 5, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW/2, 5, doc.stamp, "", 1, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(6)

	// Client block
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(contentW, 5, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(contentW, 5, tr(client.Name), "", 1, "L", false, 0, "")
	if client.Address != "" {
		pdf.CellFormat(contentW, 5, tr(client.Address), "", 1, "L", false, 0, "")
	}
	if client.Zip != "" || client.City != "" {
		pdf.CellFormat(contentW, 5, tr(client.Zip+" "+client.City), "", 1, "L", false, 0, "")
	}
	if client.Email != "" {
		pdf.CellFormat(contentW, 5, tr(client.Email), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	// Line table. Column widths sum to contentW.
	descW, qtyW, priceW, totalW := contentW-70, 20.0, 25.0, 25.0
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(descW, 7, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(qtyW, 7, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(priceW, 7, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(totalW, 7, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, line := range doc.lines {
		pdf.CellFormat(descW, 6, tr(line.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(qtyW, 6, trimQty(line.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(priceW, 6, money(line.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(totalW, 6, money(line.Total), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Totals, right-aligned under the table
	labelW := contentW - totalW - 25
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(labelW, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(25, 6, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(totalW, 6, money(doc.subtotal), "", 1, "R", false, 0, "")
	pdf.CellFormat(labelW, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(25, 6, fmt.Sprintf("Tax %.1f%%", doc.taxRate), "", 0, "R", false, 0, "")
	pdf.CellFormat(totalW, 6, money(doc.total-doc.subtotal), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(labelW, 7, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(totalW, 7, money(doc.total), "", 1, "R", false, 0, "")

	if doc.notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(contentW, 5, tr(doc.notes), "", "L", false)
	}

	// QR code bottom right, deep link back into the app
	qrPng, err := qrcode.Encode(doc.qr, qrcode.Low, 256)
	if err != nil {
		return nil, err
	}
	imgOptions := gofpdf.ImageOptions{
		ImageType: "PNG",
		ReadDpi:   true,
	}
	_ = pdf.RegisterImageOptionsReader("doc_qr", imgOptions, bytes.NewReader(qrPng))
	pdf.ImageOptions("doc_qr", pageWidth-15-22, 297-15-22, 22, 22, false, imgOptions, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// trimQty drops the decimals for whole quantities so "2" prints as 2, not 2.00.
func trimQty(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
