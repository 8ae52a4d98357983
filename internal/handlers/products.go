package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/xelth-com/eckclaims/internal/catalog"
	"github.com/xelth-com/eckclaims/internal/observability"
)

const maxUploadSize = 20 << 20

// ProductLookupRequest is the body of POST /api/products/lookup
type ProductLookupRequest struct {
	ProductCode string `json:"product_code"`
}

func (r *Router) respondProduct(w http.ResponseWriter, req *http.Request, code string) {
	product, err := r.Catalog.Lookup(req.Context(), code)
	if err != nil {
		zerolog.Ctx(req.Context()).Error().Err(err).Str("product_code", code).Msg("product lookup failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	// unknown codes answer with empty names so the entry form can clear its fields
	result := map[string]string{"product_code": code, "brand_name": "", "product_name": ""}
	if product != nil {
		result["brand_name"] = product.BrandName
		result["product_name"] = product.ProductName
	}
	respondJSON(w, http.StatusOK, result)
}

// getProduct resolves a product code from the path
func (r *Router) getProduct(w http.ResponseWriter, req *http.Request) {
	r.respondProduct(w, req, mux.Vars(req)["code"])
}

// lookupProduct resolves a product code from the body
func (r *Router) lookupProduct(w http.ResponseWriter, req *http.Request) {
	var body ProductLookupRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if strings.TrimSpace(body.ProductCode) == "" {
		respondError(w, http.StatusBadRequest, "Invalid or missing product_code in request body")
		return
	}
	r.respondProduct(w, req, strings.TrimSpace(body.ProductCode))
}

// searchProducts lists catalog rows matching ?query=
func (r *Router) searchProducts(w http.ResponseWriter, req *http.Request) {
	products, err := r.Catalog.Search(req.Context(), req.URL.Query().Get("query"))
	if err != nil {
		zerolog.Ctx(req.Context()).Error().Err(err).Msg("product search failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

// uploadProducts replaces the catalog with an uploaded CSV or XLSX file
func (r *Router) uploadProducts(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadSize)
	file, header, err := req.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	rows, err := catalog.ParseUpload(header.Filename, file)
	if err != nil {
		observability.RecordCatalogUpload(false)
		if errors.Is(err, catalog.ErrUnsupportedFile) || errors.Is(err, catalog.ErrInvalidHeaders) || errors.Is(err, catalog.ErrInvalidRow) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "Could not read file: "+err.Error())
		return
	}

	count, err := r.Catalog.ReplaceAll(req.Context(), rows)
	if err != nil {
		observability.RecordCatalogUpload(false)
		zerolog.Ctx(req.Context()).Error().Err(err).Msg("catalog replace failed")
		respondError(w, http.StatusInternalServerError, "Database transaction failed during product upload.")
		return
	}
	observability.RecordCatalogUpload(true)
	zerolog.Ctx(req.Context()).Info().Int("rows", count).Str("file", header.Filename).Msg("product catalog replaced")
	respondJSON(w, http.StatusOK, map[string]interface{}{"message": "Upload and import successful", "count": count})
}
