package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xelth-com/eckclaims/internal/models"
)

// pdfColumns are the report columns that fit on a landscape A4 page, with widths in mm
var pdfColumns = []struct {
	index int
	width float64
}{
	{0, 22}, {1, 38}, {2, 38}, {6, 30}, {7, 22}, {8, 28}, {9, 26}, {10, 50}, {11, 14},
}

// WritePDF renders records as a landscape table with a title line
func WritePDF(w io.Writer, records []models.SerialJob, title string, generated time.Time) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range pdfColumns {
			pdf.CellFormat(c.width, 6, Columns[c.index].Header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 7)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-8)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 4, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("%d records, generated %s", len(records), generated.UTC().Format("2006-01-02 15:04 UTC")), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	header()

	for _, r := range records {
		for _, c := range pdfColumns {
			text := tr(Columns[c.index].Value(r))
			for len(text) > 0 && pdf.GetStringWidth(text) > c.width-2 {
				text = text[:len(text)-1]
			}
			pdf.CellFormat(c.width, 5, text, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
