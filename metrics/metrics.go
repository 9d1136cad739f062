// Package metrics exposes Prometheus instrumentation for the ring,
// archive, and rudp layers. Every handle registers into a *prometheus.
// Registry supplied by the caller — never the global DefaultRegisterer —
// so multiple cores can coexist in one process without collector
// collisions.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// RingMetrics instruments one ring engine's hot path.
type RingMetrics struct {
	ClaimFailures prometheus.Counter
	Published     prometheus.Counter
	Consumed      prometheus.Counter
	ConsumerLag   prometheus.Gauge
}

// NewRingMetrics creates and registers ring counters/gauges labeled by
// name (e.g. the ring's logical role: "ingress", "broadcast-chat").
func NewRingMetrics(reg prometheus.Registerer, name string) *RingMetrics {
	m := &RingMetrics{
		ClaimFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "relaymesh",
			Subsystem:   "ring",
			Name:        "claim_failures_total",
			Help:        "Number of try_claim calls that failed because the ring was full.",
			ConstLabels: prometheus.Labels{"ring": name},
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "relaymesh",
			Subsystem:   "ring",
			Name:        "published_total",
			Help:        "Number of slots published.",
			ConstLabels: prometheus.Labels{"ring": name},
		}),
		Consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "relaymesh",
			Subsystem:   "ring",
			Name:        "consumed_total",
			Help:        "Number of slots consumed.",
			ConstLabels: prometheus.Labels{"ring": name},
		}),
		ConsumerLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "relaymesh",
			Subsystem:   "ring",
			Name:        "consumer_lag",
			Help:        "Producer cursor minus consumer cursor.",
			ConstLabels: prometheus.Labels{"ring": name},
		}),
	}
	reg.MustRegister(m.ClaimFailures, m.Published, m.Consumed, m.ConsumerLag)
	return m
}

// ArchiveMetrics instruments one archive handle.
type ArchiveMetrics struct {
	Appends     prometheus.Counter
	Full        prometheus.Counter
	Corrupted   prometheus.Counter
	BytesWriten prometheus.Counter
}

// NewArchiveMetrics creates and registers archive counters labeled by path.
func NewArchiveMetrics(reg prometheus.Registerer, path string) *ArchiveMetrics {
	m := &ArchiveMetrics{
		Appends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "relaymesh",
			Subsystem:   "archive",
			Name:        "appends_total",
			Help:        "Number of successful appends.",
			ConstLabels: prometheus.Labels{"path": path},
		}),
		Full: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "relaymesh",
			Subsystem:   "archive",
			Name:        "full_total",
			Help:        "Number of appends rejected because the log was full.",
			ConstLabels: prometheus.Labels{"path": path},
		}),
		Corrupted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "relaymesh",
			Subsystem:   "archive",
			Name:        "corrupted_total",
			Help:        "Number of reads that failed checksum verification.",
			ConstLabels: prometheus.Labels{"path": path},
		}),
		BytesWriten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "relaymesh",
			Subsystem:   "archive",
			Name:        "bytes_written_total",
			Help:        "Payload bytes appended to the log.",
			ConstLabels: prometheus.Labels{"path": path},
		}),
	}
	reg.MustRegister(m.Appends, m.Full, m.Corrupted, m.BytesWriten)
	return m
}

// RUDPMetrics instruments one transport's session traffic.
type RUDPMetrics struct {
	FramesSent     prometheus.Counter
	FramesDropped  prometheus.Counter
	Retransmits    prometheus.Counter
	CongestionWindow prometheus.Gauge
}

// NewRUDPMetrics creates and registers transport counters/gauges labeled
// by session id.
func NewRUDPMetrics(reg prometheus.Registerer, sessionID string) *RUDPMetrics {
	m := &RUDPMetrics{
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "relaymesh",
			Subsystem:   "rudp",
			Name:        "frames_sent_total",
			Help:        "Number of frames sent on this session.",
			ConstLabels: prometheus.Labels{"session": sessionID},
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "relaymesh",
			Subsystem:   "rudp",
			Name:        "frames_dropped_total",
			Help:        "Number of malformed or checksum-failed inbound frames dropped.",
			ConstLabels: prometheus.Labels{"session": sessionID},
		}),
		Retransmits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "relaymesh",
			Subsystem:   "rudp",
			Name:        "retransmits_total",
			Help:        "Number of NAK-triggered and speculative retransmits.",
			ConstLabels: prometheus.Labels{"session": sessionID},
		}),
		CongestionWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "relaymesh",
			Subsystem:   "rudp",
			Name:        "congestion_window",
			Help:        "Current AIMD congestion window size.",
			ConstLabels: prometheus.Labels{"session": sessionID},
		}),
	}
	reg.MustRegister(m.FramesSent, m.FramesDropped, m.Retransmits, m.CongestionWindow)
	return m
}
