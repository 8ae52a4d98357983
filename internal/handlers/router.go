package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/xelth-com/eckclaims/internal/buildinfo"
	"github.com/xelth-com/eckclaims/internal/catalog"
	"github.com/xelth-com/eckclaims/internal/config"
	"github.com/xelth-com/eckclaims/internal/database"
	"github.com/xelth-com/eckclaims/internal/jobs"
	"github.com/xelth-com/eckclaims/internal/middleware"
	"github.com/xelth-com/eckclaims/internal/observability"
	"github.com/xelth-com/eckclaims/internal/services/printer"
	"github.com/xelth-com/eckclaims/internal/traffic"
	"github.com/xelth-com/eckclaims/internal/users"
	"github.com/xelth-com/eckclaims/internal/websocket"
)

// Deps are the services the HTTP layer dispatches to
type Deps struct {
	DB      *database.DB
	Config  *config.Config
	Jobs    *jobs.Service
	Catalog *catalog.Store
	Users   *users.Store
	Traffic *traffic.Store
	Hub     *websocket.Hub
	Labels  printer.LabelConfig
}

// Router wraps the mux router and the services behind it
type Router struct {
	*mux.Router
	Deps
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(deps Deps) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		Deps:   deps,
	}
	r.Use(observability.RequestLogger(log.Logger), observability.RequestMetrics)

	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	r.HandleFunc("/api/status", r.getStatus).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	authMW := middleware.Auth(deps.Config.JWTSecret)
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/signup", r.signup).Methods("POST")
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/logout", r.logout).Methods("POST")
	auth.Handle("/me", authMW(http.HandlerFunc(r.me))).Methods("GET")
	auth.Handle("/password", authMW(http.HandlerFunc(r.changePassword))).Methods("PUT")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMW)

	// Job routes; fixed paths before {rowKey}
	api.HandleFunc("/jobs/check", r.checkSerial).Methods("GET", "POST")
	api.HandleFunc("/jobs/preview", r.previewJob).Methods("POST")
	api.HandleFunc("/jobs/labels", r.generateLabels).Methods("POST")
	api.Handle("/jobs/export.xlsx", admin(r.exportXLSX)).Methods("GET")
	api.Handle("/jobs/export.pdf", admin(r.exportPDF)).Methods("GET")
	api.HandleFunc("/jobs/chain/{identityKey}", r.getChain).Methods("GET")
	api.HandleFunc("/jobs", r.listJobs).Methods("GET")
	api.HandleFunc("/jobs", r.createJob).Methods("POST")
	api.HandleFunc("/jobs/{rowKey}", r.getJob).Methods("GET")
	api.HandleFunc("/jobs/{rowKey}", r.updateJob).Methods("PUT")
	api.Handle("/jobs/{rowKey}", admin(r.deleteJob)).Methods("DELETE")
	api.Handle("/jobs/{rowKey}/audits", admin(r.getJobAudits)).Methods("GET")

	// Product catalog
	api.HandleFunc("/products", r.searchProducts).Methods("GET")
	api.HandleFunc("/products/lookup", r.lookupProduct).Methods("POST")
	api.Handle("/products/upload", admin(r.uploadProducts)).Methods("POST")
	api.HandleFunc("/products/{code}", r.getProduct).Methods("GET")

	// Branch traffic
	api.HandleFunc("/traffic", r.listTraffic).Methods("GET")
	api.HandleFunc("/traffic", r.createTraffic).Methods("POST")
	api.HandleFunc("/traffic/{id}", r.getTraffic).Methods("GET")

	// Live job events
	r.Handle("/ws/jobs", authMW(http.HandlerFunc(r.serveJobEvents))).Methods("GET")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	if err := r.DB.Ping(); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "ok",
	})
}

// getStatus returns build info and uptime
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "running",
		"build":  buildinfo.Current(time.Now().UTC()),
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// decodeJSON reads a JSON body, rejecting payloads over 1 MB
func decodeJSON(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	req.Body = http.MaxBytesReader(w, req.Body, 1<<20)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
