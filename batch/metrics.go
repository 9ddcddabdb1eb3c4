package batch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts converted files and their durations. A nil *Metrics records
// nothing.
type Metrics struct {
	files    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the batch metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msyt",
			Name:      "files_total",
			Help:      "Files processed by the batch converter",
		}, []string{"op", "status"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "msyt",
			Name:      "file_duration_seconds",
			Help:      "Time to convert a single file",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"op"}),
	}

	reg.MustRegister(m.files, m.duration)
	return m
}

func (m *Metrics) observe(op Op, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.files.WithLabelValues(string(op), status).Inc()
	m.duration.WithLabelValues(string(op)).Observe(d.Seconds())
}
