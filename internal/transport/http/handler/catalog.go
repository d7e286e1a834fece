package handler

import (
	"net/http"
	"strconv"

	"github.com/univio-api/internal/application/catalog"
)

type CatalogHandler struct {
	svc catalog.Service
}

func NewCatalogHandler(svc catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) Institutions(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.SearchInstitutions(r.Context(), r.URL.Query().Get("q"), limitParam(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListEnvelope{Data: out})
}

func (h *CatalogHandler) Majors(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.SearchMajors(r.Context(), r.URL.Query().Get("q"), limitParam(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListEnvelope{Data: out})
}

// Courses lists courses grouped by institution, filtered by a case-insensitive
// substring of the institution's name or short name.
func (h *CatalogHandler) Courses(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.CoursesByInstitution(r.Context(), r.URL.Query().Get("institution"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListEnvelope{Data: out})
}

// limitParam returns 0 (service default) when limit is absent or malformed.
func limitParam(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}
