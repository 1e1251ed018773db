package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	discoverRequests *prometheus.CounterVec
	discoverDuration *prometheus.HistogramVec
	discoverResults  prometheus.Histogram
	presenceDegraded prometheus.Counter
	pings            *prometheus.CounterVec
	wsSubscribers    prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		discoverRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nearby_discover_requests_total",
				Help: "Discover requests by outcome",
			},
			[]string{"outcome"},
		),
		discoverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nearby_discover_duration_seconds",
				Help:    "Discover latency including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		discoverResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nearby_discover_results",
				Help:    "Candidates returned per discover request",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
		presenceDegraded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nearby_presence_degraded_total",
				Help: "Presence feed pushes that fell back to offline",
			},
		),
		pings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nearby_presence_pings_total",
				Help: "Presence heartbeats by result",
			},
			[]string{"result"},
		),
		wsSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nearby_presence_ws_subscribers",
				Help: "Open presence websocket connections",
			},
		),
	}
	reg.MustRegister(
		m.discoverRequests,
		m.discoverDuration,
		m.discoverResults,
		m.presenceDegraded,
		m.pings,
		m.wsSubscribers,
	)
	return m
}
