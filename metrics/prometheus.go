package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

func NewPrometheusRecorder() Recorder {
	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snet",
			Name:      "events_total",
			Help:      "marketplace client event counters",
		},
		[]string{"type", "org", "service"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "snet",
			Name:      "latency_seconds",
			Help:      "marketplace client operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "org", "service"},
	)

	prometheus.MustRegister(counters, histogram)

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}
}

func (p *PrometheusRecorder) IncCounter(name string, labels Labels) {
	p.counters.With(prometheus.Labels{
		"type":    name,
		"org":     labels["org"],
		"service": labels["service"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels Labels) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"org":       labels["org"],
		"service":   labels["service"],
	}).Observe(d.Seconds())
}
