package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/freightport/backend/internal/domain/billing"
)

// Issuer is printed in the invoice header
type Issuer struct {
	Name    string
	Address string
	Phone   string
}

// BillPDF renders an invoice
func (r *Renderer) BillPDF(b *billing.Bill, customer string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Invoice "+b.BillNumber, false)
	pdf.SetCreator(r.issuer.Name, false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(r.issuer.Name))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	if r.issuer.Address != "" {
		pdf.Cell(0, 5, tr(r.issuer.Address))
		pdf.Ln(5)
	}
	if r.issuer.Phone != "" {
		pdf.Cell(0, 5, "Tel: "+r.issuer.Phone)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "INVOICE")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	header := [][2]string{
		{"Invoice No.", b.BillNumber},
		{"Bill To", customer},
		{"Order No.", b.OrderNumber},
		{"Status", Label(string(b.Status))},
		{"Issued", formatDate(b.IssuedAt)},
		{"Due Date", formatDate(b.DueDate)},
		{"Currency", b.Currency},
	}
	for _, row := range header {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(35, 6, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	widths := []float64{35, 70, 20, 30, 35}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Charge", "Description", "Qty", "Unit Price", "Amount"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, it := range b.Items {
		pdf.CellFormat(widths[0], 6, Label(string(it.ChargeCode)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(truncateText(it.Description, 45)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, it.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, Money(it.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, Money(it.Amount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	labelWidth := widths[0] + widths[1] + widths[2] + widths[3]
	totals := [][2]string{
		{"Total (" + b.Currency + ")", Money(b.Amount)},
		{"Paid", Money(b.PaidAmount)},
		{"Outstanding", Money(b.Outstanding())},
	}
	pdf.SetFont("Arial", "B", 10)
	for _, row := range totals {
		pdf.CellFormat(labelWidth, 6, row[0], "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, row[1], "1", 1, "R", false, 0, "")
	}

	if len(b.Payments) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 7, "Payments")
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 9)
		for _, p := range b.Payments {
			paidAt := p.PaidAt
			line := fmt.Sprintf("%s  %s  %s  %s", formatDate(&paidAt), Label(string(p.Method)), Money(p.Amount), p.Reference)
			pdf.Cell(0, 5, tr(line))
			pdf.Ln(5)
		}
	}

	if b.Remark != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, tr("Remark: "+b.Remark), "", "L", false)
	}

	pdf.SetY(-20)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, "Generated "+r.now().UTC().Format(time.RFC3339), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render bill pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncateText(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
