package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegisterer(reg), WithNamespace("test"))

	m.ObjectLoads.WithLabelValues(LoadCacheHit).Inc()
	m.ObjectLoads.WithLabelValues(LoadCacheHit).Inc()
	m.RemoteError(137)
	m.IndexWrites.Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ObjectLoads.WithLabelValues(LoadCacheHit)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RemoteErrors.WithLabelValues("137")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IndexWrites))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_objects_loads_total")
	assert.Contains(t, names, "test_remote_errors_total")
}

func TestNewTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = New(WithRegisterer(reg))
	assert.Panics(t, func() { _ = New(WithRegisterer(reg)) })
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
}
