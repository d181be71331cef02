package assessment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"nabha-triage/internal/triage"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Error codes returned in error bodies.
const (
	CodeInvalidInput = "INVALID_INPUT"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL_SERVER_ERROR"
)

// maxRequestBody bounds the size of a triage request body.
const maxRequestBody = 64 << 10

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type reloadResponse struct {
	Rules int `json:"rules"`
}

func (h *Handler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "Invalid request body")
		return
	}

	a, err := h.svc.Assess(r.Context(), req)
	if err != nil {
		if errors.Is(err, triage.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, CodeInternal, "Failed to record assessment")
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "Invalid assessment ID")
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, CodeInternal, "Failed to load assessment")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) ListPatientAssessments(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "Invalid patient ID")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, "Invalid limit")
			return
		}
		limit = n
	}

	items, err := h.svc.ListByPatient(r.Context(), patientID, limit)
	if err != nil {
		if errors.Is(err, triage.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, "Invalid patient ID")
			return
		}
		writeError(w, http.StatusInternalServerError, CodeInternal, "Failed to list assessments")
		return
	}
	if items == nil {
		items = []Assessment{}
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Catalog())
}

func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ReloadRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "Rule reload failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Rules: n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/triage", h.CreateAssessment)
	r.Get("/triage/{id}", h.GetAssessment)
	r.Get("/patients/{patientID}/triage", h.ListPatientAssessments)
	r.Get("/symptoms", h.GetCatalog)
	r.Post("/rules/reload", h.ReloadRules)
}
