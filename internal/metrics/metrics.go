package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	sourceRows     *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	passDuration   prometheus.Summary
	passEvents     prometheus.Gauge
	passFailures   prometheus.Counter
	openFeeds      prometheus.Gauge
	liveFeeds      prometheus.Gauge
	alertsSent     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sourceRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activity",
			Name:      "source_rows_total",
			Help:      "Rows read per source connector",
		}, []string{"source"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activity",
			Name:      "source_failures_total",
			Help:      "Connector fetches that degraded to zero rows, by reason",
		}, []string{"source", "reason"}),
		passDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "activity",
			Name:      "aggregation_duration_seconds",
			Help:      "Time spent on one full aggregation pass",
		}),
		passEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "activity",
			Name:      "aggregation_events",
			Help:      "Events in the most recent aggregation pass",
		}),
		passFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "activity",
			Name:      "aggregation_failures_total",
			Help:      "Aggregation passes that failed outside the connectors",
		}),
		openFeeds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "activity",
			Name:      "open_feeds",
			Help:      "Feeds currently open",
		}),
		liveFeeds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "activity",
			Name:      "live_feeds",
			Help:      "Open feeds with a working change subscription",
		}),
		alertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activity",
			Name:      "alerts_total",
			Help:      "Urgent-event alerts by outcome",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.sourceRows, m.sourceFailures,
			m.passDuration, m.passEvents, m.passFailures,
			m.openFeeds, m.liveFeeds, m.alertsSent,
		)
	}
	return m
}

func (m *Metrics) SourceFetched(source string, rows int) {
	if m == nil {
		return
	}
	m.sourceRows.WithLabelValues(source).Add(float64(rows))
}

func (m *Metrics) SourceFailed(source, reason string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source, reason).Inc()
}

// PassCompleted records a successful aggregation pass.
func (m *Metrics) PassCompleted(d time.Duration, events int) {
	if m == nil {
		return
	}
	m.passDuration.Observe(d.Seconds())
	m.passEvents.Set(float64(events))
}

func (m *Metrics) PassFailed() {
	if m == nil {
		return
	}
	m.passFailures.Inc()
}

func (m *Metrics) FeedOpened() {
	if m == nil {
		return
	}
	m.openFeeds.Inc()
}

func (m *Metrics) FeedClosed() {
	if m == nil {
		return
	}
	m.openFeeds.Dec()
}

// SubscriptionStarted and SubscriptionReleased track feeds that receive
// change notifications.
func (m *Metrics) SubscriptionStarted() {
	if m == nil {
		return
	}
	m.liveFeeds.Inc()
}

func (m *Metrics) SubscriptionReleased() {
	if m == nil {
		return
	}
	m.liveFeeds.Dec()
}

func (m *Metrics) AlertSent(ok bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !ok {
		status = "failed"
	}
	m.alertsSent.WithLabelValues(status).Inc()
}
