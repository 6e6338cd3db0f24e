package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncHOSUpdate("accepted")
	m.IncHOSUpdate("accepted")
	m.IncMessageSkipped("eld.events", "malformed")
	m.SetBreakerOpen("samsara", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HOSUpdates.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesSkipped.WithLabelValues("eld.events", "malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("samsara")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncHOSUpdate("accepted")
		m.ObserveRecordUpdate(time.Millisecond)
		m.IncEventFailed("DRIVER_HOS_UPDATED")
		m.SetBreakerOpen("motive", false)
		m.ObserveHTTPRequest("/v1/drivers/{driverID}/hos", "GET", 200, time.Millisecond)
	})
}
