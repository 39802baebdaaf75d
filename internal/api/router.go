package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/homescan/internal/api/handlers"
	"github.com/wonny/homescan/pkg/logger"
)

// Routes groups the handlers mounted by the router. Stream may be nil.
type Routes struct {
	Contract *handlers.ContractHandler
	Quality  *handlers.QualityHandler
	Stream   http.Handler

	// POST 요청 제한 (초당, 버스트). 0이면 제한 없음
	WriteRate  float64
	WriteBurst int
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(routes Routes, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API
	api := r.PathPrefix("/api").Subrouter()

	// 쓰기(POST) 엔드포인트만 제한
	write := func(h http.HandlerFunc) http.Handler { return h }
	if routes.WriteRate > 0 {
		limit := rateLimitMiddleware(rate.NewLimiter(rate.Limit(routes.WriteRate), max(routes.WriteBurst, 1)))
		write = func(h http.HandlerFunc) http.Handler { return limit(h) }
	}

	// Contract endpoints
	api.Handle("/contract/validate", write(routes.Contract.Validate)).Methods("POST")
	api.Handle("/contract/validate/batch", write(routes.Contract.ValidateBatch)).Methods("POST")

	// Quality endpoints
	api.Handle("/quality/gate", write(routes.Quality.Gate)).Methods("POST")
	api.HandleFunc("/quality/runs", routes.Quality.ListRuns).Methods("GET")
	api.HandleFunc("/quality/runs/{runId}", routes.Quality.GetRun).Methods("GET")

	// Run summary stream
	if routes.Stream != nil {
		r.Handle("/ws/runs", routes.Stream).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "homescan-api",
	})
}

// rateLimitMiddleware rejects requests beyond the limiter's budget
func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Reserve()
			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many requests",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the wrapped writer to http.ResponseController
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// 웹소켓 업그레이드는 Hijacker가 필요하므로 감싸지 않음
			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
