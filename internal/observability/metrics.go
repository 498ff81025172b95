package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beautycare",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "beautycare",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "route"})

	// ModelOutcomes counts generative calls per call site, labelled with
	// whether the model answer was used or a fallback replaced it.
	ModelOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beautycare",
		Name:      "model_outcomes_total",
		Help:      "Generative model call outcomes by call site and source.",
	}, []string{"call", "source"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beautycare",
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beautycare",
		Name:      "rate_limited_requests_total",
		Help:      "Requests rejected by the per-client rate limiter.",
	})
)
