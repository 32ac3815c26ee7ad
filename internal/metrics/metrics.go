package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // RoutingDecisions counts routing outcomes (assigned, escalated, error)
    RoutingDecisions = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "routing_decisions_total", Help: "Routing decisions by outcome."},
        []string{"outcome"},
    )
    // ScoringDuration tracks how long a full candidate ranking takes
    ScoringDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "routing_scoring_duration_seconds", Help: "Candidate ranking duration in seconds.", Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5}},
    )
    // CandidatesConsidered tracks candidate pool sizes per routing call
    CandidatesConsidered = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "routing_candidates_considered", Help: "Candidates considered per routing call.", Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100}},
    )
)

// RegisterDefault registers all collectors on the service registry, once.
func RegisterDefault() {
    regOnce.Do(func() {
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(RoutingDecisions)
        Registry.MustRegister(ScoringDuration)
        Registry.MustRegister(CandidatesConsidered)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
