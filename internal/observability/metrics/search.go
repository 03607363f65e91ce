package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

const namespace = "gks"

// SearchMetrics implements ports.SearchObserver and exports breaker state.
type SearchMetrics struct {
	service string

	stageDuration *prometheus.HistogramVec
	sourceResults *prometheus.HistogramVec
	plansTotal    *prometheus.CounterVec
	rerankTotal   *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
}

func NewSearchMetrics(registerer prometheus.Registerer, service string) *SearchMetrics {
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each hybrid search stage.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "stage"},
	)
	sourceResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "source_results",
			Help:      "Results contributed per source before fusion.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "source"},
	)
	plansTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "plans_total",
			Help:      "Query plans by origin and hop depth.",
		},
		[]string{"service", "origin", "hop"},
	)
	rerankTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "rerank_total",
			Help:      "Rerank stage outcomes.",
		},
		[]string{"service", "status"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)

	registerer.MustRegister(stageDuration, sourceResults, plansTotal, rerankTotal, breakerState)

	return &SearchMetrics{
		service:       service,
		stageDuration: stageDuration,
		sourceResults: sourceResults,
		plansTotal:    plansTotal,
		rerankTotal:   rerankTotal,
		breakerState:  breakerState,
	}
}

func (m *SearchMetrics) ObserveStage(stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(m.service, stage).Observe(duration.Seconds())
}

func (m *SearchMetrics) ObserveSource(source domain.SourceTag, count int) {
	m.sourceResults.WithLabelValues(m.service, string(source)).Observe(float64(count))
}

func (m *SearchMetrics) ObservePlan(source domain.PlanSource, hopDepth int) {
	origin := string(source)
	if origin == "" {
		origin = "unknown"
	}
	m.plansTotal.WithLabelValues(m.service, origin, strconv.Itoa(hopDepth)).Inc()
}

func (m *SearchMetrics) ObserveRerank(status string) {
	if status == "" {
		status = "unknown"
	}
	m.rerankTotal.WithLabelValues(m.service, status).Inc()
}

// BreakerStateChanged matches resilience.StateListener.
func (m *SearchMetrics) BreakerStateChanged(operation, _, to string) {
	value := 0.0
	switch to {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(value)
}
