// FILE: lixenwraith/monitor/collector.go
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "monitor"

// collector exposes engine counters as Prometheus metrics
type collector struct {
	engine *Engine
	descs  map[string]*prometheus.Desc
}

// counterStats lists the cumulative Stats fields exported as counters
var counterStats = []struct {
	name, help string
	value      func(Stats) uint64
}{
	{"records_routed_total", "Host records accepted for routing.", func(s Stats) uint64 { return s.Routed }},
	{"records_filtered_total", "Host records below the level threshold.", func(s Stats) uint64 { return s.Filtered }},
	{"records_written_total", "Records written to the session log.", func(s Stats) uint64 { return s.Written }},
	{"records_dropped_total", "Records lost to a full writer queue.", func(s Stats) uint64 { return s.Dropped }},
	{"records_suppressed_total", "Duplicate records folded into summaries.", func(s Stats) uint64 { return s.Suppressed }},
	{"records_muted_total", "Host noise records discarded.", func(s Stats) uint64 { return s.Muted }},
	{"records_rate_limited_total", "Records over the per message rate limit.", func(s Stats) uint64 { return s.RateLimited }},
	{"summaries_total", "Duplicate summary records emitted.", func(s Stats) uint64 { return s.Summaries }},
	{"write_errors_total", "Failed session file writes.", func(s Stats) uint64 { return s.WriteErrors }},
	{"rotations_total", "Session file rotations.", func(s Stats) uint64 { return s.Rotations }},
	{"heartbeats_total", "Keep-alive records produced.", func(s Stats) uint64 { return s.Heartbeats }},
	{"webhook_sent_total", "Webhook posts delivered.", func(s Stats) uint64 { return s.WebhookSent }},
	{"webhook_failed_total", "Webhook posts that failed.", func(s Stats) uint64 { return s.WebhookFailed }},
	{"webhook_dropped_total", "Webhook payloads dropped on a full queue.", func(s Stats) uint64 { return s.WebhookDropped }},
}

// NewCollector returns a Prometheus collector reading e on every scrape
func NewCollector(e *Engine) prometheus.Collector {
	c := &collector{engine: e, descs: map[string]*prometheus.Desc{}}
	for _, cs := range counterStats {
		c.descs[cs.name] = prometheus.NewDesc(prometheus.BuildFQName(metricNamespace, "", cs.name), cs.help, nil, nil)
	}
	c.descs["open_buckets"] = prometheus.NewDesc(prometheus.BuildFQName(metricNamespace, "", "open_buckets"),
		"Coalescing buckets currently open.", nil, nil)
	c.descs["queue_length"] = prometheus.NewDesc(prometheus.BuildFQName(metricNamespace, "", "queue_length"),
		"Records waiting for the writer.", nil, nil)
	c.descs["health"] = prometheus.NewDesc(prometheus.BuildFQName(metricNamespace, "", "health"),
		"Engine health, 1 for the current value.", []string{"health"}, nil)
	return c
}

// Describe sends all metric descriptions
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

// Collect sends one snapshot of the engine counters
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	st := c.engine.Stats()
	for _, cs := range counterStats {
		ch <- prometheus.MustNewConstMetric(c.descs[cs.name], prometheus.CounterValue, float64(cs.value(st)))
	}
	ch <- prometheus.MustNewConstMetric(c.descs["open_buckets"], prometheus.GaugeValue, float64(st.OpenBuckets))
	ch <- prometheus.MustNewConstMetric(c.descs["queue_length"], prometheus.GaugeValue, float64(st.QueueLength))

	health := c.engine.Health()
	for _, h := range []string{HealthHealthy, HealthDegraded, HealthStopped} {
		v := 0.0
		if h == health {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.descs["health"], prometheus.GaugeValue, v, h)
	}
}
