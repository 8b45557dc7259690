package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/irtrace/internal/decoder"
	"github.com/banshee-data/irtrace/internal/pulse"
)

// Metrics counts the sample stream. It observes samples ahead of the
// decoder and receives the decoder's events as a sink.
type Metrics struct {
	registry   *prometheus.Registry
	thresholds pulse.Thresholds

	Samples        *prometheus.CounterVec
	Buckets        *prometheus.CounterVec
	Anomalies      *prometheus.CounterVec
	Lines          prometheus.Counter
	ChangedColumns prometheus.Histogram
	Durations      *prometheus.HistogramVec
}

// NewMetrics creates the metrics on a private registry so several instances
// can coexist in one process.
func NewMetrics(th pulse.Thresholds) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry:   reg,
		thresholds: th,
		Samples: f.NewCounterVec(prometheus.CounterOpts{
			Name: "irtrace_samples_total",
			Help: "Total number of samples read, by polarity",
		}, []string{"polarity"}),
		Buckets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "irtrace_bucket_samples_total",
			Help: "Total number of samples per duration bucket and polarity",
		}, []string{"bucket", "polarity"}),
		Anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "irtrace_anomalies_total",
			Help: "Total number of unclassified durations reported, by polarity",
		}, []string{"polarity"}),
		Lines: f.NewCounter(prometheus.CounterOpts{
			Name: "irtrace_lines_total",
			Help: "Total number of completed bit lines",
		}),
		ChangedColumns: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "irtrace_line_changed_columns",
			Help:    "Columns that differ from the previous line, per completed line",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		}),
		Durations: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "irtrace_sample_duration_microseconds",
			Help:    "Distribution of sample durations in microseconds",
			Buckets: []float64{250, 500, 750, 1000, 1500, 2000, 3000, 5000, 8000, 10000, 20000, 50000},
		}, []string{"polarity"}),
	}
}

// ObserveSample counts a sample before it is decoded.
func (m *Metrics) ObserveSample(s pulse.Sample) {
	pol := s.Polarity.String()
	m.Samples.WithLabelValues(pol).Inc()
	m.Buckets.WithLabelValues(m.thresholds.Classify(s.Duration).String(), pol).Inc()
	m.Durations.WithLabelValues(pol).Observe(float64(s.Duration))
}

func (m *Metrics) Anomaly(s pulse.Sample) error {
	m.Anomalies.WithLabelValues(s.Polarity.String()).Inc()
	return nil
}

func (m *Metrics) Line(current, previous []byte) error {
	m.Lines.Inc()
	if n := decoder.ChangedColumns(current, previous); n >= 0 {
		m.ChangedColumns.Observe(float64(n))
	}
	return nil
}

// Handler serves the metrics in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
