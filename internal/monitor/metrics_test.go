package monitor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/irtrace/internal/decoder"
	"github.com/banshee-data/irtrace/internal/pulse"
)

func TestMetrics_ObserveSample(t *testing.T) {
	m := NewMetrics(pulse.DefaultThresholds())

	for _, s := range []pulse.Sample{
		{Duration: 9000, Polarity: pulse.Mark},
		{Duration: 4500, Polarity: pulse.Space},
		{Duration: 560, Polarity: pulse.Mark},
		{Duration: 560, Polarity: pulse.Space},
		{Duration: 1690, Polarity: pulse.Space},
		{Duration: 40000, Polarity: pulse.Space},
	} {
		m.ObserveSample(s)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Samples.WithLabelValues("pulse")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Samples.WithLabelValues("space")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Buckets.WithLabelValues("short", "space")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Buckets.WithLabelValues("long", "space")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Buckets.WithLabelValues("preamble", "pulse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Buckets.WithLabelValues("unclassified", "space")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Buckets.WithLabelValues("noise", "space")))
}

func TestMetrics_AsDecoderSink(t *testing.T) {
	m := NewMetrics(pulse.DefaultThresholds())
	layout := decoder.Layout{BitsPerByte: 2, BytesPerLine: 2, Separator: ' '}
	acc := decoder.NewAccumulator(pulse.DefaultThresholds(), layout, m)

	feed := func(durations ...uint32) {
		for _, d := range durations {
			require.NoError(t, acc.Handle(pulse.Sample{Duration: d, Polarity: pulse.Space}))
		}
	}
	feed(500, 500, 500, 500)  // "00 00 "
	feed(500, 1600, 500, 500) // one column differs
	feed(2000)                // anomaly
	require.NoError(t, acc.Handle(pulse.Sample{Duration: 3000, Polarity: pulse.Mark}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Lines))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Anomalies.WithLabelValues("space")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Anomalies.WithLabelValues("pulse")))

	// only the second line had a previous line to compare against
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "irtrace_line_changed_columns_count 1\n")
	assert.Contains(t, rec.Body.String(), "irtrace_line_changed_columns_sum 1\n")
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(pulse.DefaultThresholds())
	m.ObserveSample(pulse.Sample{Duration: 560, Polarity: pulse.Space})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `irtrace_samples_total{polarity="space"} 1`)
	assert.Contains(t, string(body), "irtrace_sample_duration_microseconds_bucket")
}
