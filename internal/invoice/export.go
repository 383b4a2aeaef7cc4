package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	// CSVContentType is the MIME type of the text export
	CSVContentType = "text/csv;charset=utf-8"

	// XLSXContentType is the MIME type of the workbook export
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	unknownNumber = "unknown"
)

// Filename returns the export filename for a result with the given extension,
// e.g. invoice_FP202401.csv, or invoice_unknown.csv without an invoice number.
func Filename(r *InvoiceResult, ext string) string {
	number := ""
	if r != nil {
		number = r.InvoiceNumber
	}
	if number == "" {
		number = unknownNumber
	}
	return fmt.Sprintf("invoice_%s.%s", number, ext)
}

// Export renders a result as "<field>: <value>" lines in declaration order.
// Empty fields are skipped and items are written as a single line holding
// the JSON encoding of the whole sequence. Values are not escaped, so the
// output is descriptive text rather than strict CSV.
func Export(r *InvoiceResult) (string, []byte) {
	if r == nil {
		r = &InvoiceResult{}
	}

	lines := make([]string, 0, 20)
	for _, f := range r.headFields() {
		if f.Value != "" {
			lines = append(lines, f.Name+": "+f.Value)
		}
	}
	if len(r.Items) > 0 {
		lines = append(lines, "items: "+encodeItems(r.Items))
	}
	for _, f := range r.tailFields() {
		if f.Value != "" {
			lines = append(lines, f.Name+": "+f.Value)
		}
	}

	return Filename(r, "csv"), []byte(strings.Join(lines, "\n"))
}

// encodeItems returns compact JSON for items without HTML escaping
func encodeItems(items []LineItem) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		// []LineItem only holds strings
		panic(err)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// ExportXLSX renders a result as a workbook with an "Invoice" sheet of
// field/value rows and, when present, an "Items" sheet with one row per item.
func ExportXLSX(r *InvoiceResult) (string, []byte, error) {
	if r == nil {
		r = &InvoiceResult{}
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Invoice"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", nil, fmt.Errorf("naming sheet: %w", err)
	}

	row := 1
	writeRow := func(sheet string, values []interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := writeRow(sheet, []interface{}{"Field", "Value"}); err != nil {
		return "", nil, fmt.Errorf("writing header: %w", err)
	}
	for _, field := range r.Fields() {
		if field.Value == "" {
			continue
		}
		if err := writeRow(sheet, []interface{}{field.Name, field.Value}); err != nil {
			return "", nil, fmt.Errorf("writing field %s: %w", field.Name, err)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 22)
	_ = f.SetColWidth(sheet, "B", "B", 48)

	if len(r.Items) > 0 {
		const items = "Items"
		if _, err := f.NewSheet(items); err != nil {
			return "", nil, fmt.Errorf("creating items sheet: %w", err)
		}
		row = 1
		if err := writeRow(items, []interface{}{"name", "spec", "unit", "quantity", "unit_price", "amount", "tax_rate"}); err != nil {
			return "", nil, fmt.Errorf("writing items header: %w", err)
		}
		for i, item := range r.Items {
			values := []interface{}{item.Name, item.Spec, item.Unit, item.Quantity, item.UnitPrice, item.Amount, item.TaxRate}
			if err := writeRow(items, values); err != nil {
				return "", nil, fmt.Errorf("writing item %d: %w", i, err)
			}
		}
		_ = f.SetColWidth(items, "A", "A", 32)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("xlsx write: %w", err)
	}
	return Filename(r, "xlsx"), buf.Bytes(), nil
}
