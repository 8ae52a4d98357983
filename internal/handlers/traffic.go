package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/xelth-com/eckclaims/internal/models"
	"github.com/xelth-com/eckclaims/internal/traffic"
)

// listTraffic returns every branch traffic record
func (r *Router) listTraffic(w http.ResponseWriter, req *http.Request) {
	records, err := r.Traffic.List(req.Context())
	if err != nil {
		zerolog.Ctx(req.Context()).Error().Err(err).Msg("traffic list failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// getTraffic returns one record by numeric id
func (r *Router) getTraffic(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid traffic id")
		return
	}
	rec, err := r.Traffic.Get(req.Context(), uint(id))
	switch {
	case errors.Is(err, traffic.ErrNotFound):
		respondError(w, http.StatusNotFound, "Traffic record not found")
	case err != nil:
		zerolog.Ctx(req.Context()).Error().Err(err).Msg("traffic get failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	default:
		respondJSON(w, http.StatusOK, rec)
	}
}

// createTraffic stores one branch traffic record
func (r *Router) createTraffic(w http.ResponseWriter, req *http.Request) {
	var rec models.TrafficRecord
	if !decodeJSON(w, req, &rec) {
		return
	}
	rec.ID = 0
	rec.CreatedBy = actorOf(req).Username

	err := r.Traffic.Create(req.Context(), &rec)
	switch {
	case errors.Is(err, traffic.ErrSerialInUse), errors.Is(err, traffic.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		zerolog.Ctx(req.Context()).Error().Err(err).Msg("traffic create failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	default:
		respondJSON(w, http.StatusCreated, rec)
	}
}
