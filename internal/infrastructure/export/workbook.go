package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/freightport/backend/internal/domain/billing"
	"github.com/freightport/backend/internal/domain/order"
)

// Renderer produces export documents
type Renderer struct {
	issuer Issuer
	now    func() time.Time
}

// NewRenderer creates a renderer that prints issuer on invoices
func NewRenderer(issuer Issuer) *Renderer {
	if issuer.Name == "" {
		issuer.Name = "FreightPort"
	}
	return &Renderer{issuer: issuer, now: time.Now}
}

var orderColumns = []string{
	"Order No.", "Status", "Service", "Origin", "Destination", "Cargo", "Container",
	"Qty", "Gross Weight (kg)", "Volume (CBM)", "Incoterm", "Cargo Ready", "Quoted",
	"Currency", "Created", "Confirmed", "Completed",
}

// OrdersWorkbook renders orders as one sheet with a header row
func (r *Renderer) OrdersWorkbook(orders []*order.Order) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if err := writeHeader(f, sheet, orderColumns); err != nil {
		return nil, err
	}
	for i, o := range orders {
		created := o.CreatedAt
		row := []any{
			o.OrderNumber,
			Label(string(o.Status)),
			Label(string(o.ServiceType)),
			o.OriginPort,
			o.DestinationPort,
			o.CargoDescription,
			string(o.ContainerType),
			o.ContainerQty,
			o.GrossWeightKg.InexactFloat64(),
			o.VolumeCBM.InexactFloat64(),
			o.Incoterm,
			formatDate(o.CargoReadyDate),
			o.QuotedAmount.InexactFloat64(),
			o.Currency,
			formatDateTime(&created),
			formatDateTime(o.ConfirmedAt),
			formatDateTime(o.CompletedAt),
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}
	return finish(f, sheet, len(orderColumns))
}

var billColumns = []string{
	"Bill No.", "Order No.", "Status", "Currency", "Amount", "Paid", "Outstanding",
	"Due Date", "Issued", "Paid At", "Overdue Since", "Remark",
}

// BillsWorkbook renders bills on one sheet and their lines on a second
func (r *Renderer) BillsWorkbook(bills []*billing.Bill) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Bills"
	const itemSheet = "Items"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemSheet); err != nil {
		return nil, err
	}
	if err := writeHeader(f, sheet, billColumns); err != nil {
		return nil, err
	}
	itemColumns := []string{"Bill No.", "Charge", "Description", "Quantity", "Unit Price", "Amount"}
	if err := writeHeader(f, itemSheet, itemColumns); err != nil {
		return nil, err
	}

	itemRow := 2
	for i, b := range bills {
		row := []any{
			b.BillNumber,
			b.OrderNumber,
			Label(string(b.Status)),
			b.Currency,
			b.Amount.InexactFloat64(),
			b.PaidAmount.InexactFloat64(),
			b.Outstanding().InexactFloat64(),
			formatDate(b.DueDate),
			formatDateTime(b.IssuedAt),
			formatDateTime(b.PaidAt),
			formatDate(b.OverdueAt),
			b.Remark,
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
		for _, it := range b.Items {
			line := []any{
				b.BillNumber,
				Label(string(it.ChargeCode)),
				it.Description,
				it.Quantity.InexactFloat64(),
				it.UnitPrice.InexactFloat64(),
				it.Amount.InexactFloat64(),
			}
			if err := writeRow(f, itemSheet, itemRow, line); err != nil {
				return nil, err
			}
			itemRow++
		}
	}
	return finish(f, sheet, len(billColumns))
}

func writeHeader(f *excelize.File, sheet string, columns []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func finish(f *excelize.File, sheet string, columns int) ([]byte, error) {
	lastCol, err := excelize.ColumnNumberToName(columns)
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
		return nil, err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
