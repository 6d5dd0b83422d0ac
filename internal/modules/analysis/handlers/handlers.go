// Package handlers provides HTTP handlers for portfolio analysis.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/analysis"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps the size of an analysis request body
const maxBodyBytes = 1 << 20

// Error kinds that do not come from the analysis pipeline
const (
	kindNotFound = "not_found"
	kindInternal = "internal_error"
)

// Analyzer runs portfolio analyses
type Analyzer interface {
	Analyze(ctx context.Context, req *domain.AnalysisRequest) (*domain.AnalysisResponse, error)
	Policy() domain.Policy
}

// SnapshotStore loads recorded analyses
type SnapshotStore interface {
	Get(ctx context.Context, id string) (*analysis.Snapshot, error)
}

// Handler handles analysis HTTP requests
type Handler struct {
	service   Analyzer
	snapshots SnapshotStore
	log       zerolog.Logger
}

// NewHandler creates a new analysis handler. snapshots may be nil when
// auditing is disabled.
func NewHandler(service Analyzer, snapshots SnapshotStore, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		snapshots: snapshots,
		log:       log.With().Str("handler", "analysis").Logger(),
	}
}

// HandleAnalyzePortfolio handles POST /api/analysis/portfolio
func (h *Handler) HandleAnalyzePortfolio(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.log.Debug().Err(err).Msg("Failed to decode request body")
		h.writeError(w, r, domain.NewValidationError("invalid request body", err.Error()))
		return
	}

	resp, err := h.service.Analyze(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     resp,
		"metadata": h.metadata(r),
	})
}

// HandleGetSnapshot handles GET /api/analysis/{id}
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.snapshots == nil {
		h.writeErrorKind(w, r, http.StatusNotFound, kindNotFound, "analysis auditing is disabled", false)
		return
	}

	snap, err := h.snapshots.Get(r.Context(), id)
	if errors.Is(err, analysis.ErrSnapshotNotFound) {
		h.writeErrorKind(w, r, http.StatusNotFound, kindNotFound, "no analysis snapshot with id "+id, false)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to load analysis snapshot")
		h.writeErrorKind(w, r, http.StatusInternalServerError, kindInternal, "failed to load analysis snapshot", false)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     snap,
		"metadata": h.metadata(r),
	})
}

// HandleGetPolicy handles GET /api/analysis/policy
func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"model_version": analysis.ModelVersion,
			"policy":        h.service.Policy(),
		},
		"metadata": h.metadata(r),
	})
}

// statusFor maps an analysis error kind to an HTTP status
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrKindValidation:
		return http.StatusBadRequest
	case domain.ErrKindProviderTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrKindCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *domain.AnalysisError
	if !errors.As(err, &ae) {
		h.log.Error().Err(err).Msg("Unexpected analysis failure")
		h.writeErrorKind(w, r, http.StatusInternalServerError, kindInternal, "internal error", false)
		return
	}

	status := statusFor(ae.Kind)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Analysis failed")
	}

	body := map[string]interface{}{
		"kind":      ae.Kind,
		"message":   ae.Message,
		"retryable": ae.Retryable(),
	}
	if len(ae.Details) > 0 {
		body["details"] = ae.Details
	}
	h.writeJSON(w, status, map[string]interface{}{
		"error":    body,
		"metadata": h.metadata(r),
	})
}

func (h *Handler) writeErrorKind(w http.ResponseWriter, r *http.Request, status int, kind, message string, retryable bool) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"kind":      kind,
			"message":   message,
			"retryable": retryable,
		},
		"metadata": h.metadata(r),
	})
}

func (h *Handler) metadata(r *http.Request) map[string]interface{} {
	meta := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		meta["request_id"] = id
	}
	return meta
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
