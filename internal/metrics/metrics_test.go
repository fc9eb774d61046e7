package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SourceFetched("bookings", 3)
		m.SourceFailed("bookings", "timeout")
		m.PassCompleted(time.Second, 10)
		m.PassFailed()
		m.FeedOpened()
		m.FeedClosed()
		m.SubscriptionStarted()
		m.SubscriptionReleased()
		m.AlertSent(false)
	})
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SourceFetched("bookings", 3)
	m.SourceFetched("bookings", 2)
	m.SourceFailed("support_tickets", "unavailable")
	m.FeedOpened()
	m.FeedOpened()
	m.FeedClosed()
	m.SubscriptionStarted()
	m.SubscriptionReleased()

	assert.Equal(t, 5.0, testutil.ToFloat64(m.sourceRows.WithLabelValues("bookings")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceFailures.WithLabelValues("support_tickets", "unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.openFeeds))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.liveFeeds))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
