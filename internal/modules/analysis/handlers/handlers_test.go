package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/analysis"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Analyze(ctx context.Context, req *domain.AnalysisRequest) (*domain.AnalysisResponse, error) {
	args := m.Called(ctx, req)
	var resp *domain.AnalysisResponse
	if v := args.Get(0); v != nil {
		resp = v.(*domain.AnalysisResponse)
	}
	return resp, args.Error(1)
}

func (m *mockAnalyzer) Policy() domain.Policy {
	return domain.DefaultPolicy()
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, id string) (*analysis.Snapshot, error) {
	args := m.Called(ctx, id)
	var snap *analysis.Snapshot
	if v := args.Get(0); v != nil {
		snap = v.(*analysis.Snapshot)
	}
	return snap, args.Error(1)
}

type staticProvider map[int]domain.FundMetrics

func (p staticProvider) BatchLookup(_ context.Context, codes []int) (map[int]domain.FundMetrics, error) {
	out := make(map[int]domain.FundMetrics)
	for _, c := range codes {
		if m, ok := p[c]; ok {
			out[c] = m
		}
	}
	return out, nil
}

func newRouter(service Analyzer, store SnapshotStore) http.Handler {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api", func(r chi.Router) {
		NewHandler(service, store, logger).RegisterRoutes(r)
	})
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

const exampleBody = `{
	"request_id": "http-example",
	"holdings": [
		{"scheme_code": 100, "amount": 600000, "asset_class": "equity", "purchase_date": "2024-05-26"},
		{"scheme_code": 200, "amount": 400000, "asset_class": "debt", "purchase_date": "2025-03-22"}
	],
	"target_allocation": {"equity": 0.4, "debt": 0.35, "hybrid": 0.15, "gold": 0.05, "international": 0.05, "liquid": 0},
	"profile": {"risk_tolerance": "Moderate", "horizon_years": 7}
}`

func TestHandleAnalyzePortfolio(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	service := analysis.NewService(domain.DefaultPolicy(), staticProvider{
		100: {SchemeCode: 100, SchemeName: "Bluechip Fund", Category: "Large Cap", NAV: domain.Float(50)},
	}, time.Second, nil, nil, logger)
	service.SetClock(func() time.Time { return time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC) })

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/portfolio", strings.NewReader(exampleBody))
	w := httptest.NewRecorder()
	newRouter(service, nil).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	body := decode(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "http-example", data["request_id"])
	assert.Equal(t, analysis.ModelVersion, data["model_version"])

	summary := data["summary"].(map[string]interface{})
	assert.Equal(t, 0.75, summary["alignment_score"])
	assert.Equal(t, false, summary["is_aligned"])

	actions := data["rebalancing_actions"].([]interface{})
	first := actions[0].(map[string]interface{})
	assert.Equal(t, "SELL", first["action"])
	assert.Equal(t, float64(100), first["scheme_code"])
	assert.NotEmpty(t, first["tax_note"])

	holdings := data["holdings"].([]interface{})
	second := holdings[1].(map[string]interface{})
	assert.Equal(t, true, second["degraded"])
	assert.Equal(t, "provider_miss", second["degraded_reason"])

	meta := body["metadata"].(map[string]interface{})
	assert.NotEmpty(t, meta["timestamp"])
}

func TestHandleAnalyzePortfolio_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		kind      string
		retryable bool
	}{
		{"validation", domain.NewValidationError("invalid analysis request", "holdings[0]: one of amount or units is required"), http.StatusBadRequest, "validation_error", false},
		{"timeout", domain.NewProviderTimeoutError(context.DeadlineExceeded), http.StatusGatewayTimeout, "provider_timeout", true},
		{"cancelled", domain.NewCancelledError(context.Canceled), http.StatusServiceUnavailable, "cancelled", true},
		{"invariant", domain.NewInvariantError("sells exceed class value"), http.StatusInternalServerError, "computation_invariant_violation", false},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := new(mockAnalyzer)
			analyzer.On("Analyze", mock.Anything, mock.Anything).Return(nil, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/analysis/portfolio", strings.NewReader(exampleBody))
			w := httptest.NewRecorder()
			newRouter(analyzer, nil).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			errBody := body["error"].(map[string]interface{})
			assert.Equal(t, tt.kind, errBody["kind"])
			assert.Equal(t, tt.retryable, errBody["retryable"])
			assert.NotEmpty(t, body["metadata"].(map[string]interface{})["request_id"])
		})
	}
}

func TestHandleAnalyzePortfolio_ValidationDetails(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	service := analysis.NewService(domain.DefaultPolicy(), nil, time.Second, nil, nil, logger)

	body := `{"holdings": [{"scheme_code": 1}], "target_allocation": {"equity": 1}}`
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/portfolio", strings.NewReader(body))
	w := httptest.NewRecorder()
	newRouter(service, nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	errBody := decode(t, w)["error"].(map[string]interface{})
	details := errBody["details"].([]interface{})
	// five missing target weights and the holding without amount or units
	assert.Len(t, details, 6)
}

func TestHandleAnalyzePortfolio_MalformedBody(t *testing.T) {
	analyzer := new(mockAnalyzer)
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/portfolio", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	newRouter(analyzer, nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode(t, w)["error"].(map[string]interface{})["kind"])
	analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestHandleGetPolicy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/policy", nil)
	w := httptest.NewRecorder()
	newRouter(new(mockAnalyzer), nil).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, analysis.ModelVersion, data["model_version"])

	policy := data["policy"].(map[string]interface{})
	assert.Equal(t, 0.02, policy["gap_tolerance"])
	rules := policy["tax_rules"].(map[string]interface{})
	equity := rules["equity"].(map[string]interface{})
	assert.Equal(t, float64(365), equity["ltcg_threshold_days"])
}

func TestHandleGetSnapshot(t *testing.T) {
	store := new(mockStore)
	store.On("Get", mock.Anything, "snap-1").Return(&analysis.Snapshot{
		ID:        "snap-1",
		RequestID: "req-1",
		Response:  &domain.AnalysisResponse{RequestID: "req-1", ModelVersion: analysis.ModelVersion},
	}, nil)
	store.On("Get", mock.Anything, "missing").Return(nil, analysis.ErrSnapshotNotFound)
	store.On("Get", mock.Anything, "broken").Return(nil, errors.New("disk I/O error"))

	router := newRouter(new(mockAnalyzer), store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analysis/snap-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "snap-1", data["id"])
	assert.Equal(t, "req-1", data["request_id"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analysis/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["error"].(map[string]interface{})["kind"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analysis/broken", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleGetSnapshot_AuditDisabled(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(new(mockAnalyzer), nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analysis/anything", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrKindValidation))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(domain.ErrKindProviderTimeout))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.ErrKindCancelled))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.ErrKindInvariantViolation))
}
