package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetch("www.jobyaari.com", OutcomeOK)
	c.RecordFetch("www.jobyaari.com", OutcomeOK)
	c.RecordRetry("www.jobyaari.com")
	c.SetBreakerState("www.jobyaari.com", 1)
	c.SetRecords(map[string]int{"Engineering": 4})
	c.RecordRefresh(true, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.fetchRequests.WithLabelValues("www.jobyaari.com", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetchRetries.WithLabelValues("www.jobyaari.com")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.breakerState.WithLabelValues("www.jobyaari.com")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.records.WithLabelValues("Engineering")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.refreshTotal.WithLabelValues("success")))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordFetch("h", OutcomeError)
		c.RecordRetry("h")
		c.SetBreakerState("h", 0)
		c.RecordDiscoveryTier("selector")
		c.RecordRejected("short_title")
		c.SetRecords(map[string]int{"Science": 1})
		c.RecordRefresh(false, time.Second)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordDiscoveryTier("anchor")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `jobyaari_discovery_tier_total{tier="anchor"} 1`)
}
