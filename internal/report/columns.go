package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/xelth-com/eckclaims/internal/models"
)

// Column is one displayed report column
type Column struct {
	Header string
	Width  float64 // spreadsheet character width
	Date   bool
	Value  func(models.SerialJob) string
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// Columns is the job report layout shared by the XLSX and PDF exports
var Columns = []Column{
	{"Received Date", 15, true, func(j models.SerialJob) string { return dateValue(j.ReceivedDate) }},
	{"Serial Number", 25, false, func(j models.SerialJob) string { return j.SerialNumber }},
	{"Replace Serial", 25, false, func(j models.SerialJob) string { return deref(j.ReplaceSerial) }},
	{"Condition", 30, false, func(j models.SerialJob) string { return deref(j.Condition) }},
	{"Remark", 30, false, func(j models.SerialJob) string { return deref(j.Remark) }},
	{"Date Receipt", 15, true, func(j models.SerialJob) string { return dateValue(j.DateReceipt) }},
	{"Supplier", 20, false, func(j models.SerialJob) string { return deref(j.Supplier) }},
	{"Job No.", 15, false, func(j models.SerialJob) string { return deref(j.JobNo) }},
	{"Brand Name", 20, false, func(j models.SerialJob) string { return deref(j.BrandName) }},
	{"Product Code", 15, false, func(j models.SerialJob) string { return deref(j.ProductCode) }},
	{"Product Name", 30, false, func(j models.SerialJob) string { return deref(j.ProductName) }},
	{"Count Round", 15, false, func(j models.SerialJob) string { return strconv.Itoa(j.RoundNumber) }},
	{"Create By", 30, false, func(j models.SerialJob) string { return j.CreatedBy }},
	{"Update By", 30, false, func(j models.SerialJob) string { return j.UpdatedBy }},
}

// QuickFilter keeps records where any displayed column contains term, ignoring case.
// An empty term returns records unchanged.
func QuickFilter(records []models.SerialJob, term string) []models.SerialJob {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return records
	}
	out := make([]models.SerialJob, 0, len(records))
	for _, r := range records {
		for _, c := range Columns {
			if strings.Contains(strings.ToLower(c.Value(r)), term) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
