package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ReviewsTotal    *prometheus.CounterVec
	ReviewDuration  *prometheus.HistogramVec
	ReviewsInFlight prometheus.Gauge

	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec

	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec

	EmbeddingRequestsTotal *prometheus.CounterVec

	KnowledgeQueryDuration prometheus.Histogram
	KnowledgeDocuments     prometheus.Gauge

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	ThrottleWaitsTotal *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		ReviewsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "code_review_runs_total",
				Help: "Total number of review runs by terminal status",
			},
			[]string{"status"},
		),
		ReviewDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "code_review_run_duration_seconds",
				Help:    "End-to-end review run duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),
		ReviewsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "code_review_runs_in_flight",
				Help: "Number of review runs currently executing",
			},
		),

		StageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "code_review_stage_duration_seconds",
				Help:    "Per-stage execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		StageFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "code_review_stage_failures_total",
				Help: "Total number of failed stages by reason",
			},
			[]string{"stage", "reason"},
		),

		LLMRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "code_review_llm_requests_total",
				Help: "Total number of LLM API requests",
			},
			[]string{"provider", "status"},
		),
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "code_review_llm_request_duration_seconds",
				Help:    "LLM request duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),

		EmbeddingRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "code_review_embedding_requests_total",
				Help: "Total number of embedding requests",
			},
			[]string{"provider", "status"},
		),

		KnowledgeQueryDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "code_review_knowledge_query_duration_seconds",
				Help:    "Knowledge store similarity query duration in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		KnowledgeDocuments: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "code_review_knowledge_documents",
				Help: "Number of documents currently in the knowledge store",
			},
		),

		CacheHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "code_review_cache_hits_total",
				Help: "Total number of embedding cache hits",
			},
		),
		CacheMissesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "code_review_cache_misses_total",
				Help: "Total number of embedding cache misses",
			},
		),

		ThrottleWaitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "code_review_throttle_waits_total",
				Help: "Total number of client-side rate limit waits",
			},
			[]string{"key"},
		),
	}

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordReview(status string, duration time.Duration) {
	m.ReviewsTotal.WithLabelValues(status).Inc()
	m.ReviewDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *Metrics) RecordStageFailure(stage, reason string) {
	m.StageFailures.WithLabelValues(stage, reason).Inc()
}

func (m *Metrics) RecordLLMRequest(provider, status string, duration time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *Metrics) RecordEmbeddingRequest(provider, status string) {
	m.EmbeddingRequestsTotal.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) RecordKnowledgeQuery(duration time.Duration) {
	m.KnowledgeQueryDuration.Observe(duration.Seconds())
}

func (m *Metrics) SetKnowledgeDocuments(count float64) {
	m.KnowledgeDocuments.Set(count)
}

func (m *Metrics) RecordCacheHit()  { m.CacheHitsTotal.Inc() }
func (m *Metrics) RecordCacheMiss() { m.CacheMissesTotal.Inc() }

func (m *Metrics) RecordThrottleWait(key string) {
	m.ThrottleWaitsTotal.WithLabelValues(key).Inc()
}

func (m *Metrics) IncReviewsInFlight() { m.ReviewsInFlight.Inc() }
func (m *Metrics) DecReviewsInFlight() { m.ReviewsInFlight.Dec() }
