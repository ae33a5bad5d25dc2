package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_events_applied_total",
		Help: "Transport events applied to the segment store, by type",
	}, []string{"type"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_events_dropped_total",
		Help: "Transport events dropped, by reason",
	}, []string{"reason"})

	SegmentsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_segments_live",
		Help: "Segments currently retained in the store",
	})

	SegmentsTrimmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeline_segments_trimmed_total",
		Help: "Segments dropped by the retention trimmer",
	})

	ListenerSamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeline_listener_samples_total",
		Help: "Listener-count samples recorded",
	})

	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeline_transport_reconnects_total",
		Help: "Push-channel reconnect attempts",
	})

	BackfillDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "timeline_backfill_duration_seconds",
		Help:    "History backfill fetch latency",
		Buckets: []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
	})

	ViewClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_view_clients",
		Help: "Connected view-push websocket clients",
	})
)
