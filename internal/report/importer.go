package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xelth-com/eckclaims/internal/catalog"
	"github.com/xelth-com/eckclaims/internal/jobs"
)

// ErrMissingSerialColumn rejects an import without a Serial Number column
var ErrMissingSerialColumn = errors.New("import file has no Serial Number column")

// ImportRow is one historical job read from an exported report
type ImportRow struct {
	Line      int
	CreatedBy string
	Input     jobs.CreateInput
}

var importFields = map[string]func(*ImportRow) *string{
	"received date":  func(r *ImportRow) *string { return &r.Input.ReceivedDate },
	"serial number":  func(r *ImportRow) *string { return &r.Input.SerialNumber },
	"replace serial": func(r *ImportRow) *string { return &r.Input.ReplaceSerial },
	"condition":      func(r *ImportRow) *string { return &r.Input.Condition },
	"remark":         func(r *ImportRow) *string { return &r.Input.Remark },
	"date receipt":   func(r *ImportRow) *string { return &r.Input.DateReceipt },
	"supplier":       func(r *ImportRow) *string { return &r.Input.Supplier },
	"job no.":        func(r *ImportRow) *string { return &r.Input.JobNo },
	"brand name":     func(r *ImportRow) *string { return &r.Input.BrandName },
	"product code":   func(r *ImportRow) *string { return &r.Input.ProductCode },
	"product name":   func(r *ImportRow) *string { return &r.Input.ProductName },
	"create by":      func(r *ImportRow) *string { return &r.CreatedBy },
}

// ReadImport parses a CSV or XLSX file laid out like the job report export.
// Columns are matched by header, ignoring case; unknown columns such as
// Count Round are skipped because rounds are recomputed on import.
func ReadImport(filename string, r io.Reader) ([]ImportRow, error) {
	records, err := catalog.ReadRows(filename, r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrMissingSerialColumn
	}

	setters := make([]func(*ImportRow) *string, len(records[0]))
	hasSerial := false
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		setters[i] = importFields[key]
		if key == "serial number" {
			hasSerial = true
		}
	}
	if !hasSerial {
		return nil, ErrMissingSerialColumn
	}

	var rows []ImportRow
	for n, record := range records[1:] {
		row := ImportRow{Line: n + 2}
		empty := true
		for i, cell := range record {
			if i >= len(setters) || setters[i] == nil {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				empty = false
			}
			*setters[i](&row) = cell
		}
		if empty {
			continue
		}
		if row.Input.SerialNumber == "" {
			return nil, fmt.Errorf("line %d: serial number is empty", row.Line)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
