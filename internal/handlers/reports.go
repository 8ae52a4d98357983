package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/xelth-com/eckclaims/internal/jobs"
	"github.com/xelth-com/eckclaims/internal/models"
	"github.com/xelth-com/eckclaims/internal/report"
)

func (r *Router) exportRecords(req *http.Request) ([]models.SerialJob, error) {
	return r.queryJobs(req, func(f jobs.Filter) ([]models.SerialJob, error) {
		return r.Jobs.Export(req.Context(), actorOf(req), f)
	})
}

func sendFile(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Write(body)
}

// exportXLSX downloads the filtered job report as a workbook
func (r *Router) exportXLSX(w http.ResponseWriter, req *http.Request) {
	records, err := r.exportRecords(req)
	if err != nil {
		respondJobError(w, req, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, records); err != nil {
		respondJobError(w, req, err)
		return
	}
	sendFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "job_report.xlsx", buf.Bytes())
}

// exportPDF downloads the filtered job report as a PDF table
func (r *Router) exportPDF(w http.ResponseWriter, req *http.Request) {
	records, err := r.exportRecords(req)
	if err != nil {
		respondJobError(w, req, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WritePDF(&buf, records, "Job Report", time.Now()); err != nil {
		respondJobError(w, req, err)
		return
	}
	sendFile(w, "application/pdf", "job_report.pdf", buf.Bytes())
}
