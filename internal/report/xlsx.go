package report

import (
	"fmt"
	"io"

	"github.com/xelth-com/eckclaims/internal/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by WriteXLSX
const SheetName = "Job Report"

// roundColumn holds Count Round, written as a number
const roundColumn = 11

// WriteXLSX writes records as a single-sheet workbook
func WriteXLSX(w io.Writer, records []models.SerialJob) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c.Header
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, c.Width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(SheetName, "A1", last+"1", bold); err != nil {
		return err
	}

	for i, r := range records {
		row := make([]interface{}, len(Columns))
		for j, c := range Columns {
			row[j] = c.Value(r)
		}
		row[roundColumn] = r.RoundNumber
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_, err = f.WriteTo(w)
	return err
}
