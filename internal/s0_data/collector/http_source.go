package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/wonny/homescan/pkg/config"
	"github.com/wonny/homescan/pkg/httputil"
	"github.com/wonny/homescan/pkg/logger"
	"github.com/wonny/homescan/pkg/redis"
)

// HTTPSource reads runs from the collection stage HTTP API:
//
//	GET  {base}/runs?status=pending&limit=N  → {"runs": ["id", ...]}
//	GET  {base}/runs/{id}                    → CollectionRun
//	POST {base}/runs/{id}/gated
type HTTPSource struct {
	baseURL string
	client  *httputil.Client
	logger  *logger.Logger
}

// NewHTTPSource creates an HTTP source paced at cfg.Collector.RPS.
// When rdb is enabled the pace is also shared across processes.
func NewHTTPSource(cfg *config.Config, log *logger.Logger, rdb *redis.Client) *HTTPSource {
	client := httputil.New(cfg, log).WithLimiter(cfg.Collector.RPS, cfg.Collector.Burst)
	if rdb != nil && rdb.Enabled() && cfg.Collector.RPS > 0 {
		limit := redis.CollectorRateLimit(int(math.Ceil(cfg.Collector.RPS)))
		client = client.WithRateLimiter(redis.NewRateLimiter(rdb, "homescan"), limit)
	}

	return &HTTPSource{
		baseURL: strings.TrimRight(cfg.Collector.BaseURL, "/"),
		client:  client,
		logger:  log.WithField("module", "collector"),
	}
}

type pendingRunsResponse struct {
	Runs []string `json:"runs"`
}

// PendingRuns implements Source
func (s *HTTPSource) PendingRuns(ctx context.Context, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("status", "pending")
	q.Set("limit", strconv.Itoa(limit))

	var resp pendingRunsResponse
	if err := s.client.GetJSON(ctx, s.baseURL+"/runs?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("list pending runs: %w", err)
	}
	return resp.Runs, nil
}

// LoadRun implements Source
func (s *HTTPSource) LoadRun(ctx context.Context, runID string) (*CollectionRun, error) {
	var run CollectionRun
	err := s.client.GetJSON(ctx, s.runURL(runID), &run)
	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if run.RunID == "" {
		run.RunID = runID
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id":    run.RunID,
		"platforms": len(run.Platforms),
		"records":   run.RecordCount(),
	}).Debug("Loaded collection run")

	return &run, nil
}

// MarkGated implements Source
func (s *HTTPSource) MarkGated(ctx context.Context, runID string) error {
	resp, err := s.client.PostJSON(ctx, s.runURL(runID)+"/gated", map[string]string{"runId": runID})
	if err != nil {
		return fmt.Errorf("mark run %s gated: %w", runID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("mark run %s gated: status %d", runID, resp.StatusCode)
	}
	return nil
}

func (s *HTTPSource) runURL(runID string) string {
	return s.baseURL + "/runs/" + url.PathEscape(runID)
}
