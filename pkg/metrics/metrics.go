// Package metrics instruments the buffer pool manager with Prometheus
// counters and gauges, served over promhttp.Handler(). Metrics talk to
// the Prometheus client library directly rather than through an
// OpenTelemetry meter, since nothing in this module produces traces for
// OTel to carry alongside them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the buffer pool's Prometheus instruments. All methods
// are safe to call on a nil *Collector (they become no-ops), so a
// Manager can always hold one without a caller having to opt in.
type Collector struct {
	hits       *prometheus.CounterVec
	misses     *prometheus.CounterVec
	evictions  *prometheus.CounterVec
	writebacks *prometheus.CounterVec
	pinned     *prometheus.GaugeVec
	sweepLen   prometheus.Histogram
}

// NewCollector registers a fresh set of buffer-pool instruments on reg.
// Pass prometheus.NewRegistry() for isolated tests, or
// prometheus.DefaultRegisterer to expose them process-wide.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gojobuf_page_hits_total",
			Help: "Pages served from the buffer pool without a disk read.",
		}, []string{"instance"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gojobuf_page_misses_total",
			Help: "Pages fetched from disk because they were not resident.",
		}, []string{"instance"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gojobuf_frame_evictions_total",
			Help: "Frames recycled by the clock sweep.",
		}, []string{"instance"}),
		writebacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gojobuf_page_writebacks_total",
			Help: "Dirty pages written back to their file.",
		}, []string{"instance"}),
		pinned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gojobuf_frames_pinned",
			Help: "Frames currently pinned (pinCnt > 0).",
		}, []string{"instance"}),
		sweepLen: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gojobuf_clock_sweep_length",
			Help:    "Number of frames inspected per successful allocBuf call.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	reg.MustRegister(c.hits, c.misses, c.evictions, c.writebacks, c.pinned, c.sweepLen)
	return c
}

// Handler returns an http.Handler serving the default Prometheus
// registry's metrics in the exposition format, for mounting at a
// /metrics endpoint. Instruments registered on any other registry passed
// to NewCollector are not served by it.
func Handler() http.Handler {
	return promhttp.Handler()
}

func (c *Collector) Hit(instance string) {
	if c == nil {
		return
	}
	c.hits.WithLabelValues(instance).Inc()
}

func (c *Collector) Miss(instance string) {
	if c == nil {
		return
	}
	c.misses.WithLabelValues(instance).Inc()
}

func (c *Collector) Eviction(instance string) {
	if c == nil {
		return
	}
	c.evictions.WithLabelValues(instance).Inc()
}

func (c *Collector) Writeback(instance string) {
	if c == nil {
		return
	}
	c.writebacks.WithLabelValues(instance).Inc()
}

func (c *Collector) SetPinned(instance string, n int) {
	if c == nil {
		return
	}
	c.pinned.WithLabelValues(instance).Set(float64(n))
}

func (c *Collector) ObserveSweepLength(n int) {
	if c == nil {
		return
	}
	c.sweepLen.Observe(float64(n))
}
