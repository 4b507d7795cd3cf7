package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindmatch_match_runs_total",
			Help: "Total number of ranking passes, by outcome",
		},
		[]string{"outcome"}, // matched, no_match, preview, error
	)

	MatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mindmatch_match_duration_seconds",
			Help:    "Time spent loading the pool and ranking a referral",
			Buckets: prometheus.DefBuckets,
		},
	)

	MatchPoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mindmatch_match_pool_size",
			Help:    "Number of verified therapists scored per run",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	MatchTopScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mindmatch_match_top_score",
			Help:    "Score of the best candidate per run",
			Buckets: prometheus.LinearBuckets(35, 15, 10),
		},
	)

	MatchCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindmatch_match_commits_total",
			Help: "Referral match commits, by trigger",
		},
		[]string{"trigger"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindmatch_notifications_total",
			Help: "Notifications attempted, by channel, template and status",
		},
		[]string{"channel", "template", "status"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindmatch_cache_lookups_total",
			Help: "Redis cache lookups, by key family and result",
		},
		[]string{"family", "result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindmatch_http_requests_total",
			Help: "HTTP requests, by route pattern, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "mindmatch_http_request_duration_seconds",
			Help: "HTTP request latency, by route pattern",
		},
		[]string{"route"},
	)
)
