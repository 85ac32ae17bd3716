package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c *prometheus.CounterVec, instance string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.WithLabelValues(instance).Write(&m))
	return m.GetCounter().GetValue()
}

func TestCollectorRecordsHitsAndMisses(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.Hit("a")
	c.Hit("a")
	c.Miss("a")

	require.Equal(t, 2.0, counterValue(t, c.hits, "a"))
	require.Equal(t, 1.0, counterValue(t, c.misses, "a"))
}

func TestCollectorMethodsAreNilSafe(t *testing.T) {
	var c *Collector
	require.NotPanics(t, func() {
		c.Hit("a")
		c.Miss("a")
		c.Eviction("a")
		c.Writeback("a")
		c.SetPinned("a", 3)
		c.ObserveSweepLength(2)
	})
}

func TestHandlerIsNotNil(t *testing.T) {
	require.NotNil(t, Handler())
}
