// Package metrics exposes prompt queue activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inercia/promptq/internal/promptqueue"
)

const namespace = "promptq"

// Request results recorded by requests_total.
const (
	ResultAdmitted       = "admitted"
	ResultOverflowNotice = "overflow_notice"
	ResultDropped        = "dropped"
)

// Metrics implements promptqueue.Observer.
type Metrics struct {
	requests    *prometheus.CounterVec
	presented   *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	queueSize   prometheus.Gauge
	answerTime  prometheus.Histogram

	gatherer prometheus.Gatherer
}

var _ promptqueue.Observer = (*Metrics)(nil)

// New registers the queue metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the queue metrics on reg and serves them from
// gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Prompt requests by admission result.",
		}, []string{"result"}),
		presented: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presented_total",
			Help:      "Prompts handed to the presenter, by message type.",
		}, []string{"type"}),
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Admitted prompt requests settled, by reason.",
		}, []string{"reason"}),
		queueSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_size",
			Help:      "Admitted prompt requests not settled yet, including the one on screen.",
		}),
		answerTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_seconds",
			Help:      "Time prompts stayed on screen before the user answered or dismissed them.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		}),
		gatherer: gatherer,
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) RequestAdmitted(overflowNotice bool, queueSize int) {
	result := ResultAdmitted
	if overflowNotice {
		result = ResultOverflowNotice
	}
	m.requests.WithLabelValues(result).Inc()
	m.queueSize.Set(float64(queueSize))
}

func (m *Metrics) RequestDropped() {
	m.requests.WithLabelValues(ResultDropped).Inc()
}

func (m *Metrics) RequestPresented(p promptqueue.Prompt) {
	m.presented.WithLabelValues(string(p.Type)).Inc()
}

func (m *Metrics) RequestResolved(reason promptqueue.Reason, queueSize int, shown time.Duration) {
	m.resolutions.WithLabelValues(string(reason)).Inc()
	m.queueSize.Set(float64(queueSize))

	switch reason {
	case promptqueue.ReasonAnswered, promptqueue.ReasonDismissed:
		if shown > 0 {
			m.answerTime.Observe(shown.Seconds())
		}
	}
}
