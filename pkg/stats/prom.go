package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "mqbench"

// Metrics mirrors the worker counters as Prometheus collectors. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Generated    prometheus.Counter
	Produced     prometheus.Counter
	SendFailed   prometheus.Counter
	Consumed     *prometheus.CounterVec
	DecodeFailed prometheus.Counter
	Written      *prometheus.CounterVec
	SinkFailed   *prometheus.CounterVec
	QueueDepth   *prometheus.GaugeVec
	State        prometheus.Gauge
	PhaseSeconds *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Generated: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_generated_total",
			Help:      "Records produced by the generator",
		}),
		Produced: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_sent_total",
			Help:      "Messages successfully handed to the transport",
		}),
		SendFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "send_failures_total",
			Help:      "Messages dropped because encode or send failed",
		}),
		Consumed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_consumed_total",
			Help:      "Messages decoded and routed, by validation outcome",
		}, []string{"outcome"}),
		DecodeFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decode_failures_total",
			Help:      "Payloads that could not be decoded into a record",
		}),
		Written: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_written_total",
			Help:      "Records appended to a sink",
		}, []string{"sink"}),
		SinkFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sink_failures_total",
			Help:      "Records dropped because the sink append failed",
		}, []string{"sink"}),
		QueueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "queue_depth",
			Help:      "Items waiting in a routing queue",
		}, []string{"queue"}),
		State: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "coordinator_state",
			Help:      "Ordinal of the current coordinator state",
		}),
		PhaseSeconds: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall clock time of each finished pipeline phase",
		}, []string{"phase"}),
	}
}

func (m *Metrics) IncGenerated() {
	if m != nil {
		m.Generated.Inc()
	}
}

func (m *Metrics) IncProduced() {
	if m != nil {
		m.Produced.Inc()
	}
}

func (m *Metrics) IncSendFailed() {
	if m != nil {
		m.SendFailed.Inc()
	}
}

func (m *Metrics) IncConsumed(valid bool) {
	if m == nil {
		return
	}
	if valid {
		m.Consumed.WithLabelValues("valid").Inc()
	} else {
		m.Consumed.WithLabelValues("invalid").Inc()
	}
}

func (m *Metrics) IncDecodeFailed() {
	if m != nil {
		m.DecodeFailed.Inc()
	}
}

func (m *Metrics) IncWritten(sink string) {
	if m != nil {
		m.Written.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) IncSinkFailed(sink string) {
	if m != nil {
		m.SinkFailed.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) SetQueueDepth(queue string, depth int) {
	if m != nil {
		m.QueueDepth.WithLabelValues(queue).Set(float64(depth))
	}
}

func (m *Metrics) SetState(ordinal int) {
	if m != nil {
		m.State.Set(float64(ordinal))
	}
}

func (m *Metrics) ObservePhase(p Phase, d time.Duration) {
	if m != nil {
		m.PhaseSeconds.WithLabelValues(string(p)).Set(d.Seconds())
	}
}
