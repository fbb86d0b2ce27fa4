package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/invoicescan/internal/domain"
)

const (
	InvoiceSheet  = "Invoices"
	LineItemSheet = "Line Items"
)

var (
	invoiceHeaders  = []string{"Invoice ID", "Supplier", "Invoice Date", "Total Amount", "Tax", "Line Items", "Images", "Created At"}
	lineItemHeaders = []string{"Invoice ID", "Supplier", "Description", "Quantity", "Unit Price", "Amount"}
)

// WriteXLSX writes a workbook with one row per invoice on the Invoices sheet
// and one row per line item on the Line Items sheet. Missing values are left
// blank. Invoices are expected to have their line items loaded.
func WriteXLSX(w io.Writer, invoices []*domain.Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), InvoiceSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(LineItemSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := writeRow(f, InvoiceSheet, 1, toRow(invoiceHeaders)); err != nil {
		return err
	}
	if err := writeRow(f, LineItemSheet, 1, toRow(lineItemHeaders)); err != nil {
		return err
	}

	itemRow := 2
	for i, inv := range invoices {
		err := writeRow(f, InvoiceSheet, i+2, []any{
			inv.ID,
			value(inv.Supplier),
			value(inv.InvoiceDate),
			value(inv.TotalAmount),
			value(inv.Tax),
			len(inv.LineItems),
			strings.Join(inv.ImagePaths, "\n"),
			inv.CreatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("invoice %d: %w", inv.ID, err)
		}
		for _, item := range inv.LineItems {
			err := writeRow(f, LineItemSheet, itemRow, []any{
				inv.ID,
				value(inv.Supplier),
				value(item.Description),
				value(item.Quantity),
				value(item.UnitPrice),
				value(item.Amount),
			})
			if err != nil {
				return fmt.Errorf("invoice %d line item: %w", inv.ID, err)
			}
			itemRow++
		}
	}

	for _, cw := range columnWidths {
		if err := f.SetColWidth(cw.sheet, cw.from, cw.to, cw.width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

var columnWidths = []struct {
	sheet    string
	from, to string
	width    float64
}{
	{InvoiceSheet, "B", "B", 28},
	{InvoiceSheet, "C", "E", 14},
	{InvoiceSheet, "G", "G", 60},
	{InvoiceSheet, "H", "H", 22},
	{LineItemSheet, "B", "B", 28},
	{LineItemSheet, "C", "C", 48},
	{LineItemSheet, "D", "F", 14},
}

// writeRow fills one row, stopping at the first cell that cannot be written.
func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("failed to address cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toRow(headers []string) []any {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return row
}

// value unwraps optional fields; nil leaves the cell empty.
func value[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
