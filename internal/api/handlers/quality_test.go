package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/homescan/internal/contracts"
	"github.com/wonny/homescan/internal/s0_data/quality"
	"github.com/wonny/homescan/pkg/logger"
)

type memoryStore struct {
	runs    map[string]*contracts.RunSummary
	saveErr error
	limits  []int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{runs: map[string]*contracts.RunSummary{}}
}

func (m *memoryStore) SaveRunSummary(ctx context.Context, s *contracts.RunSummary) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.runs[s.RunID] = s
	return nil
}

func (m *memoryStore) GetRunSummary(ctx context.Context, runID string) (*contracts.RunSummary, error) {
	s, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", quality.ErrRunNotFound, runID)
	}
	return s, nil
}

func (m *memoryStore) ListRuns(ctx context.Context, limit int) ([]quality.RunOverview, error) {
	m.limits = append(m.limits, limit)
	out := []quality.RunOverview{}
	for _, s := range m.runs {
		out = append(out, quality.RunOverview{RunID: s.RunID, Passed: s.Passed(), TotalSample: s.TotalSample})
	}
	return out, nil
}

type recordingPublisher struct {
	events []any
}

func (p *recordingPublisher) Publish(ctx context.Context, v any) error {
	p.events = append(p.events, v)
	return nil
}

const gateBody = `{
	"runId": "run-7",
	"thresholds": {"violationRate": 0.5, "imageValidRate": "oops"},
	"platforms": [
		{"name": "naver", "mode": "full", "samples": [
			{"sample_status": "DONE", "requiredFields": true, "contract_violations": 0, "parse_error": false, "images_cnt": 2, "images_valid_cnt": 2}
		]},
		{"name": "zigbang", "samples": []}
	]
}`

func newQualityHandler(store RunStore, pub Publisher) *QualityHandler {
	log := logger.Nop()
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	builder := quality.NewBuilder(log).WithClock(func() time.Time { return fixed })
	return NewQualityHandler(builder, contracts.DefaultThresholds(), store, pub, log)
}

func TestQualityHandler_Gate(t *testing.T) {
	h := newQualityHandler(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/quality/gate", strings.NewReader(gateBody))
	rec := httptest.NewRecorder()
	h.Gate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fail", rec.Header().Get("X-Quality-Gate"))

	var summary contracts.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "run-7", summary.RunID)
	assert.Equal(t, 1, summary.TotalSample)
	assert.Equal(t, 0.5, summary.Thresholds.ViolationRate)
	assert.Equal(t, 0.80, summary.Thresholds.ImageValidRate, "invalid override keeps the configured value")

	require.Len(t, summary.Platforms, 2)
	assert.True(t, summary.Platforms[0].Pass)
	assert.Equal(t, contracts.ReasonNoSamples, summary.Platforms[1].Reason)
}

func TestQualityHandler_GateBadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no platforms", body: `{"platforms": []}`},
		{name: "unnamed platform", body: `{"platforms": [{"samples": []}]}`},
		{name: "broken json", body: `{"platforms": [`},
	}

	h := newQualityHandler(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/quality/gate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Gate(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestQualityHandler_GatePersist(t *testing.T) {
	store := newMemoryStore()
	pub := &recordingPublisher{}
	h := newQualityHandler(store, pub)

	req := httptest.NewRequest(http.MethodPost, "/api/quality/gate?persist=true", strings.NewReader(gateBody))
	rec := httptest.NewRecorder()
	h.Gate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, store.runs, "run-7")
	assert.Len(t, pub.events, 1)
}

func TestQualityHandler_GatePersistErrors(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		h := newQualityHandler(nil, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/quality/gate?persist=1", strings.NewReader(gateBody))
		rec := httptest.NewRecorder()
		h.Gate(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("save fails", func(t *testing.T) {
		store := newMemoryStore()
		store.saveErr = errors.New("db down")
		pub := &recordingPublisher{}
		h := newQualityHandler(store, pub)

		req := httptest.NewRequest(http.MethodPost, "/api/quality/gate?persist=true", strings.NewReader(gateBody))
		rec := httptest.NewRecorder()
		h.Gate(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, pub.events)
	})
}

func TestQualityHandler_GetRun(t *testing.T) {
	store := newMemoryStore()
	store.runs["run-1"] = &contracts.RunSummary{RunID: "run-1", TotalSample: 5}
	h := newQualityHandler(store, nil)

	tests := []struct {
		runID      string
		wantStatus int
	}{
		{runID: "run-1", wantStatus: http.StatusOK},
		{runID: "missing", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.runID, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/quality/runs/"+tt.runID, nil)
			req = mux.SetURLVars(req, map[string]string{"runId": tt.runID})
			rec := httptest.NewRecorder()
			h.GetRun(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestQualityHandler_ListRuns(t *testing.T) {
	store := newMemoryStore()
	store.runs["run-1"] = &contracts.RunSummary{RunID: "run-1"}
	h := newQualityHandler(store, nil)

	tests := []struct {
		query      string
		wantStatus int
		wantLimit  int
	}{
		{query: "", wantStatus: http.StatusOK, wantLimit: 20},
		{query: "?limit=5", wantStatus: http.StatusOK, wantLimit: 5},
		{query: "?limit=100000", wantStatus: http.StatusOK, wantLimit: maxRunsLimit},
		{query: "?limit=0", wantStatus: http.StatusBadRequest},
		{query: "?limit=abc", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			store.limits = nil
			req := httptest.NewRequest(http.MethodGet, "/api/quality/runs"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.ListRuns(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				require.Len(t, store.limits, 1)
				assert.Equal(t, tt.wantLimit, store.limits[0])
				out := decodeMap(t, rec)
				assert.Equal(t, float64(1), out["count"])
			}
		})
	}
}

func TestQualityHandler_NoStore(t *testing.T) {
	h := newQualityHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.ListRuns(rec, httptest.NewRequest(http.MethodGet, "/api/quality/runs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.GetRun(rec, httptest.NewRequest(http.MethodGet, "/api/quality/runs/x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
