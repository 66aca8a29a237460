package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pharma-pipeline/pkg/audit"
	"github.com/sells-group/pharma-pipeline/pkg/config"
	"github.com/sells-group/pharma-pipeline/pkg/engine"
	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
	"github.com/sells-group/pharma-pipeline/pkg/ratelimit"
	"github.com/sells-group/pharma-pipeline/pkg/webhook"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeStore struct {
	mu           sync.Mutex
	requests     map[string]models.Request
	tracking     map[string]models.ProcessTracking
	finalOutput  map[string]models.RequestFinalOutput
	lastStatuses map[string]models.RequestStatus
	trackGetErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:     map[string]models.Request{},
		tracking:     map[string]models.ProcessTracking{},
		finalOutput:  map[string]models.RequestFinalOutput{},
		lastStatuses: map[string]models.RequestStatus{},
	}
}

func (s *fakeStore) Create(_ context.Context, req models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return models.Request{}, pgx.ErrNoRows
	}
	return req, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, status models.RequestStatus, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStatuses[id] = status
	return nil
}

func (s *fakeStore) SaveProviderResponses(context.Context, string, []models.ProviderResponse) error {
	return nil
}
func (s *fakeStore) SaveMergedData(context.Context, models.MergedData) error           { return nil }
func (s *fakeStore) SaveCategoryResult(context.Context, models.CategoryResult) error   { return nil }
func (s *fakeStore) RecordStageEvent(context.Context, models.PipelineStageEvent) error { return nil }

func (s *fakeStore) TrackingCreate(_ context.Context, t models.ProcessTracking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking[t.RequestID] = t
	return nil
}

func (s *fakeStore) TrackingGet(_ context.Context, requestID string) (models.ProcessTracking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trackGetErr != nil {
		return models.ProcessTracking{}, s.trackGetErr
	}
	t, ok := s.tracking[requestID]
	if !ok {
		return models.ProcessTracking{}, pgx.ErrNoRows
	}
	return t, nil
}

func (s *fakeStore) TrackingUpdate(_ context.Context, t models.ProcessTracking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking[t.RequestID] = t
	return nil
}

func (s *fakeStore) SaveRouteScore(context.Context, string, models.RouteScore) error { return nil }
func (s *fakeStore) SaveFinalOutput(context.Context, models.RequestFinalOutput) error {
	return nil
}
func (s *fakeStore) CategoryResultsByRequestID(context.Context, string) ([]models.CategoryResult, error) {
	return nil, nil
}

func (s *fakeStore) BulkGet(_ context.Context, ids []string) (map[string]models.ProcessTracking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.ProcessTracking)
	for _, id := range ids {
		if t, ok := s.tracking[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (s *fakeStore) FinalOutput(_ context.Context, id string) (models.RequestFinalOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.finalOutput[id]
	if !ok {
		return models.RequestFinalOutput{}, pgx.ErrNoRows
	}
	return out, nil
}

type fakeAuditStore struct{}

func (fakeAuditStore) Append(context.Context, models.AuditEvent) error { return nil }
func (fakeAuditStore) ByRequestID(context.Context, string) ([]models.AuditEvent, error) {
	return nil, nil
}
func (fakeAuditStore) ByCorrelationID(context.Context, string) ([]models.AuditEvent, error) {
	return nil, nil
}
func (fakeAuditStore) Count(context.Context) (int64, error) { return 0, nil }

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

var _ ratelimit.Limiter = allowAllLimiter{}

func testServer(t *testing.T, store *fakeStore) (*Server, *config.Config) {
	t.Helper()
	cfg := config.Builtin()
	cfg.HTTP.APIKeys = map[string]config.APIKeyScope{
		"submit-key": {CanSubmit: true},
		"read-key":   {CanRead: true},
		"cancel-key": {CanCancel: true},
	}
	logger := audit.New(fakeAuditStore{})
	delivery := webhook.New(0)
	eng := engine.New(cfg, store, logger, delivery, map[string]providers.Adapter{}, allowAllLimiter{})
	return NewServer(eng, store, logger, cfg, nil), cfg
}

func doRequest(r http.Handler, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmit_MissingAPIKeyReturns401(t *testing.T) {
	s, _ := testServer(t, newFakeStore())
	w := doRequest(s.Router(), http.MethodPost, "/v1/requests", "", SubmitRequest{DrugNames: []string{"aspirin"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmit_InsufficientScopeReturns403(t *testing.T) {
	s, _ := testServer(t, newFakeStore())
	w := doRequest(s.Router(), http.MethodPost, "/v1/requests", "read-key", SubmitRequest{DrugNames: []string{"aspirin"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubmit_Success(t *testing.T) {
	store := newFakeStore()
	store.trackGetErr = errors.New("background processing skipped for this test")
	s, _ := testServer(t, store)

	w := doRequest(s.Router(), http.MethodPost, "/v1/requests", "submit-key", SubmitRequest{DrugNames: []string{"aspirin"}})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, 1, resp.DrugCount)
}

func TestSubmit_InvalidBodyReturns400(t *testing.T) {
	s, _ := testServer(t, newFakeStore())
	w := doRequest(s.Router(), http.MethodPost, "/v1/requests", "submit-key", SubmitRequest{DrugNames: nil})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStatus_NotFoundReturns404(t *testing.T) {
	s, _ := testServer(t, newFakeStore())
	w := doRequest(s.Router(), http.MethodGet, "/v1/requests/missing/status", "read-key", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStatus_Found(t *testing.T) {
	store := newFakeStore()
	store.requests["r1"] = models.Request{ID: "r1", DrugName: "aspirin"}
	store.tracking["r1"] = models.ProcessTracking{RequestID: "r1", Status: models.StatusCollecting, ProgressPercent: 25}
	s, _ := testServer(t, store)

	w := doRequest(s.Router(), http.MethodGet, "/v1/requests/r1/status", "read-key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp ProcessStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "aspirin", resp.DrugName)
	assert.Equal(t, 25, resp.ProgressPercent)
}

func TestGetResults_ProcessingReturns202(t *testing.T) {
	store := newFakeStore()
	store.requests["r1"] = models.Request{ID: "r1"}
	s, _ := testServer(t, store)

	w := doRequest(s.Router(), http.MethodGet, "/v1/requests/r1/results", "read-key", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestCancel_InvalidTransitionReturns409(t *testing.T) {
	store := newFakeStore()
	store.tracking["r1"] = models.ProcessTracking{RequestID: "r1", Status: models.StatusCompleted}
	s, _ := testServer(t, store)

	w := doRequest(s.Router(), http.MethodPost, "/v1/requests/r1/cancel", "cancel-key", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCancel_Success(t *testing.T) {
	store := newFakeStore()
	store.requests["r1"] = models.Request{ID: "r1"}
	store.tracking["r1"] = models.ProcessTracking{RequestID: "r1", Status: models.StatusCollecting}
	s, _ := testServer(t, store)

	w := doRequest(s.Router(), http.MethodPost, "/v1/requests/r1/cancel", "cancel-key", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBulkStatus_SeparatesFoundAndNotFound(t *testing.T) {
	store := newFakeStore()
	store.requests["r1"] = models.Request{ID: "r1"}
	store.tracking["r1"] = models.ProcessTracking{RequestID: "r1", Status: models.StatusCollecting}
	s, _ := testServer(t, store)

	w := doRequest(s.Router(), http.MethodPost, "/v1/requests/bulk-status", "read-key", BulkStatusRequest{RequestIDs: []string{"r1", "missing"}})
	require.Equal(t, http.StatusOK, w.Code)
	var resp BulkStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"r1"}, resp.Found)
	assert.Equal(t, []string{"missing"}, resp.NotFound)
}

func TestReprocess_RejectsNonTerminalRequest(t *testing.T) {
	store := newFakeStore()
	store.requests["r1"] = models.Request{ID: "r1"}
	store.tracking["r1"] = models.ProcessTracking{RequestID: "r1", Status: models.StatusCollecting}
	s, _ := testServer(t, store)

	w := doRequest(s.Router(), http.MethodPost, "/v1/requests/r1/reprocess", "submit-key", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
