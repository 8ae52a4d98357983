package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/xelth-com/eckclaims/internal/jobs"
)

// respondJobError maps the jobs error taxonomy to a status code
func respondJobError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case jobs.IsSerialConflict(err):
		respondError(w, http.StatusBadRequest, "Serial number is already used")
	case errors.Is(err, jobs.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, jobs.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, jobs.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		zerolog.Ctx(req.Context()).Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
