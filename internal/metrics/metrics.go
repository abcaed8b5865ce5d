package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeRetryable    = "retryable"
	OutcomeError        = "error"
	OutcomeShortCircuit = "short_circuit"
)

// Collector holds the engine's Prometheus metrics. A nil *Collector is valid
// and records nothing, so components can take one optionally.
type Collector struct {
	fetchRequests   *prometheus.CounterVec
	fetchRetries    *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	discoveryTier   *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	records         *prometheus.GaugeVec
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
}

// NewCollector creates the metrics and registers them on reg
// (prometheus.DefaultRegisterer when nil).
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		fetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobyaari_fetch_requests_total",
			Help: "Fetch attempts by host and outcome",
		}, []string{"host", "outcome"}),
		fetchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobyaari_fetch_retries_total",
			Help: "Retries scheduled after a transient fetch failure",
		}, []string{"host"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobyaari_breaker_state",
			Help: "Circuit breaker state per host (0 closed, 1 open, 2 half-open)",
		}, []string{"host"}),
		discoveryTier: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobyaari_discovery_tier_total",
			Help: "Pages whose candidates came from each discovery tier",
		}, []string{"tier"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobyaari_candidates_rejected_total",
			Help: "Candidates dropped before persistence, by reason",
		}, []string{"reason"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobyaari_records",
			Help: "Records per category in the last committed knowledge base",
		}, []string{"category"}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobyaari_refresh_total",
			Help: "Refresh runs by outcome",
		}, []string{"outcome"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobyaari_refresh_duration_seconds",
			Help:    "Wall time of a refresh run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
	}

	reg.MustRegister(
		c.fetchRequests,
		c.fetchRetries,
		c.breakerState,
		c.discoveryTier,
		c.rejected,
		c.records,
		c.refreshTotal,
		c.refreshDuration,
	)
	return c
}

func (c *Collector) RecordFetch(host, outcome string) {
	if c == nil {
		return
	}
	c.fetchRequests.WithLabelValues(host, outcome).Inc()
}

func (c *Collector) RecordRetry(host string) {
	if c == nil {
		return
	}
	c.fetchRetries.WithLabelValues(host).Inc()
}

func (c *Collector) SetBreakerState(host string, state int) {
	if c == nil {
		return
	}
	c.breakerState.WithLabelValues(host).Set(float64(state))
}

func (c *Collector) RecordDiscoveryTier(tier string) {
	if c == nil {
		return
	}
	c.discoveryTier.WithLabelValues(tier).Inc()
}

func (c *Collector) RecordRejected(reason string) {
	if c == nil {
		return
	}
	c.rejected.WithLabelValues(reason).Inc()
}

func (c *Collector) SetRecords(counts map[string]int) {
	if c == nil {
		return
	}
	for cat, n := range counts {
		c.records.WithLabelValues(cat).Set(float64(n))
	}
}

func (c *Collector) RecordRefresh(success bool, took time.Duration) {
	if c == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.refreshTotal.WithLabelValues(outcome).Inc()
	c.refreshDuration.Observe(took.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
