// Package metrics provides Prometheus metrics for the feed poller.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll statuses.
const (
	StatusOK          = "ok"
	StatusNotModified = "not_modified"
	StatusError       = "error"
	StatusBusy        = "busy"
)

// Filing outcomes.
const (
	OutcomeEmitted   = "emitted"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
)

// Config holds metrics configuration.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // e.g. ":9090"
}

// ApplyDefaults sets default values for metrics config.
func (c *Config) ApplyDefaults() {
	if c.Address == "" {
		c.Address = ":9090"
	}
}

// Metrics holds all poller metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	PollsTotal      *prometheus.CounterVec
	FilingsTotal    *prometheus.CounterVec
	PollDuration    prometheus.Histogram
	LastSuccessTime prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers the metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "secfeed",
			Name:      "polls_total",
			Help:      "Feed polls by status",
		},
		[]string{"status"},
	)

	m.FilingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "secfeed",
			Name:      "filings_total",
			Help:      "Feed entries by outcome",
		},
		[]string{"outcome"},
	)

	m.PollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "secfeed",
			Name:      "poll_duration_seconds",
			Help:      "Time taken by one poll, fetch to report",
			Buckets:   prometheus.DefBuckets,
		},
	)

	m.LastSuccessTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "secfeed",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful poll",
		},
	)

	m.registry.MustRegister(m.PollsTotal, m.FilingsTotal, m.PollDuration, m.LastSuccessTime)
	return m
}

// RecordPoll counts a finished poll.
func (m *Metrics) RecordPoll(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.PollsTotal.WithLabelValues(status).Inc()
	m.PollDuration.Observe(d.Seconds())
	if status == StatusOK || status == StatusNotModified {
		m.LastSuccessTime.SetToCurrentTime()
	}
}

// RecordFilings adds per-outcome entry counts.
func (m *Metrics) RecordFilings(emitted, duplicates, ignored int) {
	if m == nil {
		return
	}
	m.FilingsTotal.WithLabelValues(OutcomeEmitted).Add(float64(emitted))
	m.FilingsTotal.WithLabelValues(OutcomeDuplicate).Add(float64(duplicates))
	m.FilingsTotal.WithLabelValues(OutcomeIgnored).Add(float64(ignored))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
