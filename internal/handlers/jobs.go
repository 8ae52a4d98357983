package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xelth-com/eckclaims/internal/jobs"
	"github.com/xelth-com/eckclaims/internal/middleware"
	"github.com/xelth-com/eckclaims/internal/models"
	"github.com/xelth-com/eckclaims/internal/report"
)

// SerialRequest carries a serial and optional chain hints
type SerialRequest struct {
	SerialNumber  string `json:"serial_number"`
	ReplaceSerial string `json:"replacement_of_serial"`
	ProductCode   string `json:"product_code"`
}

func actorOf(req *http.Request) jobs.Actor {
	actor, _ := middleware.ActorFrom(req.Context())
	return actor
}

// checkSerial reports serial availability without writing
func (r *Router) checkSerial(w http.ResponseWriter, req *http.Request) {
	var body SerialRequest
	if req.Method == http.MethodGet {
		body.SerialNumber = req.URL.Query().Get("serial_number")
	} else if !decodeJSON(w, req, &body) {
		return
	}

	result, err := r.Jobs.CheckSerial(req.Context(), body.SerialNumber)
	if err != nil {
		respondJobError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// previewJob returns product defaults and the round the serial would get
func (r *Router) previewJob(w http.ResponseWriter, req *http.Request) {
	var body SerialRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	preview, err := r.Jobs.Preview(req.Context(), body.SerialNumber, body.ReplaceSerial, body.ProductCode)
	if err != nil {
		respondJobError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

// createJob registers a new job round
func (r *Router) createJob(w http.ResponseWriter, req *http.Request) {
	var in jobs.CreateInput
	if !decodeJSON(w, req, &in) {
		return
	}
	res, err := r.Jobs.Create(req.Context(), actorOf(req), in)
	if err != nil {
		respondJobError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"identity_key":          res.IdentityKey,
		"row_key":               res.RowKey,
		"round_number":          res.RoundNumber,
		"is_replacement_serial": res.IsReplacementSerial,
	})
}

// queryJobs applies the filter parameters and the optional q quick filter
func (r *Router) queryJobs(req *http.Request, run func(jobs.Filter) ([]models.SerialJob, error)) ([]models.SerialJob, error) {
	q := req.URL.Query()
	f, err := jobs.ParseFilter(q)
	if err != nil {
		return nil, err
	}
	records, err := run(f)
	if err != nil {
		return nil, err
	}
	return report.QuickFilter(records, q.Get("q")), nil
}

// listJobs returns jobs matching the query parameters
func (r *Router) listJobs(w http.ResponseWriter, req *http.Request) {
	records, err := r.queryJobs(req, func(f jobs.Filter) ([]models.SerialJob, error) {
		return r.Jobs.Query(req.Context(), f)
	})
	if err != nil {
		respondJobError(w, req, err)
		return
	}
	if records == nil {
		records = []models.SerialJob{}
	}
	respondJSON(w, http.StatusOK, records)
}

// getJob returns one job
func (r *Router) getJob(w http.ResponseWriter, req *http.Request) {
	job, err := r.Jobs.Get(req.Context(), mux.Vars(req)["rowKey"])
	if err != nil {
		respondJobError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// updateJob changes the editable fields of one job
func (r *Router) updateJob(w http.ResponseWriter, req *http.Request) {
	var fields jobs.EditableFields
	if !decodeJSON(w, req, &fields) {
		return
	}
	job, err := r.Jobs.Update(req.Context(), actorOf(req), mux.Vars(req)["rowKey"], fields)
	if err != nil {
		respondJobError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// deleteJob removes one job
func (r *Router) deleteJob(w http.ResponseWriter, req *http.Request) {
	if err := r.Jobs.Delete(req.Context(), actorOf(req), mux.Vars(req)["rowKey"]); err != nil {
		respondJobError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Job deleted"})
}

// getJobAudits returns the change trail of one job
func (r *Router) getJobAudits(w http.ResponseWriter, req *http.Request) {
	audits, err := r.Jobs.Audits(req.Context(), actorOf(req), mux.Vars(req)["rowKey"])
	if err != nil {
		respondJobError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, audits)
}

// getChain returns every round of one identity
func (r *Router) getChain(w http.ResponseWriter, req *http.Request) {
	chain, err := r.Jobs.Chain(req.Context(), mux.Vars(req)["identityKey"])
	if err != nil {
		respondJobError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, chain)
}
