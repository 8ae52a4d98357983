package printer

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/xelth-com/eckclaims/internal/models"
)

// LabelConfig holds the sheet layout for label PDFs
type LabelConfig struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"marginTop"`
	MarginLeft float64 `json:"marginLeft"`
	GapX       float64 `json:"gapX"`
	GapY       float64 `json:"gapY"`
	// URLPrefix is prepended to the row key in the QR payload
	URLPrefix string `json:"urlPrefix"`
}

// DefaultLabelConfig is a 3x8 sheet of A4 labels
func DefaultLabelConfig() LabelConfig {
	return LabelConfig{Cols: 3, Rows: 8, MarginTop: 10, MarginLeft: 7, GapX: 2.5, GapY: 0}
}

func (c LabelConfig) normalized() LabelConfig {
	d := DefaultLabelConfig()
	if c.Cols <= 0 {
		c.Cols = d.Cols
	}
	if c.Rows <= 0 {
		c.Rows = d.Rows
	}
	return c
}

// QRPayload is the text encoded in a job label
func QRPayload(cfg LabelConfig, job models.SerialJob) string {
	return cfg.URLPrefix + job.RowKey
}

// GenerateJobLabelsPDF creates one label per job: QR code of the row key,
// serial number and round underneath
func GenerateJobLabelsPDF(jobs []models.SerialJob, cfg LabelConfig) ([]byte, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no jobs to print")
	}
	cfg = cfg.normalized()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, pageHeight := pdf.GetPageSize()

	availW := pageWidth - cfg.MarginLeft*2
	availH := pageHeight - cfg.MarginTop*2
	labelW := (availW - float64(cfg.Cols-1)*cfg.GapX) / float64(cfg.Cols)
	labelH := (availH - float64(cfg.Rows-1)*cfg.GapY) / float64(cfg.Rows)

	labelsPerPage := cfg.Cols * cfg.Rows
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}

	for i, job := range jobs {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		indexOnPage := i % labelsPerPage
		x := cfg.MarginLeft + float64(indexOnPage%cfg.Cols)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(indexOnPage/cfg.Cols)*(labelH+cfg.GapY)

		qrPng, err := qrcode.Encode(QRPayload(cfg, job), qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode qr for %s: %w", job.RowKey, err)
		}
		imgName := fmt.Sprintf("qr_%d", i)
		pdf.RegisterImageOptionsReader(imgName, imgOptions, bytes.NewReader(qrPng))

		// QR on the left, text on the right
		qrSize := labelH * 0.85
		if qrSize > labelW*0.45 {
			qrSize = labelW * 0.45
		}
		pdf.ImageOptions(imgName, x+1, y+(labelH-qrSize)/2, qrSize, qrSize, false, imgOptions, 0, "")

		textX := x + qrSize + 2
		textW := labelW - qrSize - 3
		pdf.SetXY(textX, y+labelH/2-6)
		pdf.SetFontSize(9)
		pdf.CellFormat(textW, 5, tr(job.SerialNumber), "", 2, "L", false, 0, "")
		pdf.SetFontSize(7)
		pdf.CellFormat(textW, 4, fmt.Sprintf("Round %d", job.RoundNumber), "", 2, "L", false, 0, "")
		if job.JobNo != nil {
			pdf.CellFormat(textW, 4, tr("Job "+*job.JobNo), "", 2, "L", false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
