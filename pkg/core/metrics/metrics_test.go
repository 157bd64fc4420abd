package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordReport("complete")
	r.RecordReport("complete")
	r.RecordReport("no_data")
	r.RecordResolution("direct_match")
	r.RecordResolution("")
	r.RecordCheck("A = L + E", true)
	r.RecordCacheLookup(false)
	r.RecordLatency("assemble", 0.002)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.reports.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.reports.WithLabelValues("no_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolutions.WithLabelValues("unresolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.checks.WithLabelValues("A = L + E", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheHits.WithLabelValues("miss")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordReport("complete")
		r.RecordResolution("keyword_fallback")
		r.RecordCheck("x", false)
		r.RecordCacheLookup(true)
		r.RecordLatency("analyze", 1)
	})
}
