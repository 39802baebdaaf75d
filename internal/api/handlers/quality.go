package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/homescan/internal/contracts"
	"github.com/wonny/homescan/internal/s0_data/quality"
	"github.com/wonny/homescan/pkg/logger"
)

// RunStore persists and reads run summaries
type RunStore interface {
	SaveRunSummary(ctx context.Context, summary *contracts.RunSummary) error
	GetRunSummary(ctx context.Context, runID string) (*contracts.RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]quality.RunOverview, error)
}

// Publisher announces stored run summaries
type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// 런 목록 조회 상한
const maxRunsLimit = 200

// QualityHandler exposes the quality gate and stored run summaries
// ⭐ SSOT: 품질 게이트 API 핸들러는 이 구조체에서만
type QualityHandler struct {
	builder    *quality.Builder
	thresholds contracts.QualityThresholds
	store      RunStore  // nil이면 저장/조회 비활성
	publisher  Publisher // nil이면 발행 안 함
	logger     *logger.Logger
}

// NewQualityHandler creates a new quality handler. store and publisher may be nil.
func NewQualityHandler(
	builder *quality.Builder,
	thresholds contracts.QualityThresholds,
	store RunStore,
	publisher Publisher,
	log *logger.Logger,
) *QualityHandler {
	return &QualityHandler{
		builder:    builder,
		thresholds: thresholds,
		store:      store,
		publisher:  publisher,
		logger:     log.WithField("handler", "quality"),
	}
}

// Gate evaluates platform samples against the thresholds.
// With ?persist=true the summary is stored and published.
// POST /api/quality/gate
func (h *QualityHandler) Gate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readBody(w, r)
	if err != nil {
		respondBodyError(w, err)
		return
	}

	req, err := quality.DecodeRequest(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary := h.builder.BuildRequest(req, h.thresholds)

	if persist, _ := strconv.ParseBool(r.URL.Query().Get("persist")); persist {
		if h.store == nil {
			respondError(w, http.StatusServiceUnavailable, "Run storage is not configured")
			return
		}
		if err := h.store.SaveRunSummary(ctx, summary); err != nil {
			h.logger.WithError(err).WithField("run_id", summary.RunID).Error("Failed to save run summary")
			respondError(w, http.StatusInternalServerError, "Failed to save run summary")
			return
		}
		if h.publisher != nil {
			if err := h.publisher.Publish(ctx, summary); err != nil {
				h.logger.WithError(err).WithField("run_id", summary.RunID).Warn("Failed to publish run summary")
			}
		}
	}

	if summary.Passed() {
		w.Header().Set("X-Quality-Gate", "pass")
	} else {
		w.Header().Set("X-Quality-Gate", "fail")
	}
	respondJSON(w, http.StatusOK, summary)
}

// ListRuns returns the latest stored runs
// GET /api/quality/runs?limit=20
func (h *QualityHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "Run storage is not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected a positive integer)")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one stored run summary
// GET /api/quality/runs/{runId}
func (h *QualityHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "Run storage is not configured")
		return
	}

	runID := mux.Vars(r)["runId"]
	summary, err := h.store.GetRunSummary(r.Context(), runID)
	if err != nil {
		if errors.Is(err, quality.ErrRunNotFound) {
			respondError(w, http.StatusNotFound, "Run not found")
			return
		}
		h.logger.WithError(err).WithField("run_id", runID).Error("Failed to get run summary")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run summary")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
