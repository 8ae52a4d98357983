package handlers

import (
	"fmt"
	"net/http"

	"github.com/xelth-com/eckclaims/internal/models"
	"github.com/xelth-com/eckclaims/internal/services/printer"
)

// LabelRequest lists the jobs to print and an optional sheet layout
type LabelRequest struct {
	RowKeys []string             `json:"row_keys"`
	Layout  *printer.LabelConfig `json:"layout,omitempty"`
}

// generateLabels renders QR labels for the requested jobs
func (r *Router) generateLabels(w http.ResponseWriter, req *http.Request) {
	var body LabelRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if len(body.RowKeys) == 0 {
		respondError(w, http.StatusBadRequest, "row_keys is required")
		return
	}

	jobList := make([]models.SerialJob, 0, len(body.RowKeys))
	for _, key := range body.RowKeys {
		job, err := r.Jobs.Get(req.Context(), key)
		if err != nil {
			respondJobError(w, req, err)
			return
		}
		jobList = append(jobList, *job)
	}

	layout := r.Labels
	if body.Layout != nil {
		layout = *body.Layout
		if layout.URLPrefix == "" {
			layout.URLPrefix = r.Labels.URLPrefix
		}
	}

	pdfBytes, err := printer.GenerateJobLabelsPDF(jobList, layout)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}
	sendFile(w, "application/pdf", fmt.Sprintf("labels_%d.pdf", len(jobList)), pdfBytes)
}
