package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReviewsTotal counts reviews produced, labeled by terminal status.
	ReviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_reviews_total",
		Help: "The total number of reviews produced",
	}, []string{"status"}) // status: completed, failed

	// AgentExecutions counts agent runs, labeled by agent kind and outcome.
	AgentExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_agent_executions_total",
		Help: "The total number of agent executions",
	}, []string{"agent", "result"}) // result: success, error

	// AgentDuration measures per-agent execution time.
	AgentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "review_agent_duration_seconds",
		Help:    "Time taken by a single agent execution",
		Buckets: prometheus.DefBuckets,
	}, []string{"agent"})

	// IssuesFound counts issues reported by agents, labeled by severity.
	IssuesFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_issues_found_total",
		Help: "The total number of issues reported by agents",
	}, []string{"agent", "severity"})

	// ResolutionFailures counts requests rejected at the resolver stage.
	ResolutionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_resolution_failures_total",
		Help: "Total number of requests that failed artifact resolution",
	}, []string{"reason"}) // reason: invalid_request, not_found, provider_unavailable
)
