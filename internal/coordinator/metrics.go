package coordinator

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks poll health.
type Metrics struct {
	refreshes   *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
	success     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flairbridge_refresh_total",
			Help: "Flair refreshes by result",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flairbridge_refresh_duration_seconds",
			Help:    "Time taken to fetch every structure from Flair",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flairbridge_last_success_timestamp_seconds",
			Help: "Last successful refresh timestamp (epoch seconds)",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flairbridge_refresh_success",
			Help: "Last refresh success (1=ok, 0=error)",
		}),
	}
}

// Collectors returns the collectors to register with a prometheus registry.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.refreshes, m.duration, m.lastSuccess, m.success}
}
