package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/game-knowledge-search/internal/config"
	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
	"github.com/kirillkom/game-knowledge-search/internal/observability/metrics"
)

const (
	serviceName        = "api"
	maxRequestBody     = 64 << 10
	readinessTimeout   = 2 * time.Second
	backpressureWait   = 50 * time.Millisecond
	defaultAnswerLimit = 5
)

// HealthCheck is one readiness probe, e.g. a database ping.
type HealthCheck = func(ctx context.Context) error

type Router struct {
	cfg     config.Config
	search  ports.SearchService
	planner ports.QueryPlanner
	answer  ports.AnswerService
	checks  map[string]HealthCheck
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	search ports.SearchService,
	planner ports.QueryPlanner,
	answer ports.AnswerService,
	checks map[string]HealthCheck,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:     cfg,
		search:  search,
		planner: planner,
		answer:  answer,
		checks:  checks,
		metrics: httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/readyz", rt.readyz)
	mux.HandleFunc("/v1/search", rt.searchHandler)
	mux.HandleFunc("/v1/classify", rt.classifyHandler)
	mux.HandleFunc("/v1/answer", rt.answerHandler)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(rt.checks))
	for name := range rt.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := rt.checks[name](ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "ready"
	if status != http.StatusOK {
		overall = "not_ready"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": results})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (rt *Router) searchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	outcome, err := rt.search.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		writeError(w, r, mapErrorToHTTPStatus(err), err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSearchObservation(serviceName, "search", len(outcome.Results), time.Since(start))
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) classifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("query is required"))
		return
	}
	writeJSON(w, http.StatusOK, rt.planner.Classify(r.Context(), req.Query))
}

func (rt *Router) answerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	if rt.answer == nil {
		writeError(w, r, http.StatusServiceUnavailable, errors.New("answer generation is not configured"))
		return
	}

	var req struct {
		Question string `json:"question"`
		Limit    int    `json:"limit"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultAnswerLimit
	}

	start := time.Now()
	answer, err := rt.answer.Answer(r.Context(), req.Question, limit)
	if err != nil {
		writeError(w, r, mapErrorToHTTPStatus(err), err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSearchObservation(serviceName, "answer", len(answer.Outcome.Results), time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	message := err.Error()
	if status >= http.StatusInternalServerError && !domain.IsKind(err, domain.ErrAdapterUnavailable) {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{
		"error":      message,
		"request_id": requestIDFromContext(r.Context()),
	})
}
