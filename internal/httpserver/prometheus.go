package httpserver

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nvgputop/nvgputop-web/internal/monitor"
	"github.com/nvgputop/nvgputop-web/internal/sampler"
)

func (s *Server) registerPrometheus(mux *http.ServeMux) {
	registry := prometheus.NewRegistry()
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "nvgputop",
			Subsystem: "ws",
			Name:      "active_connections",
			Help:      "Current number of active WebSocket clients.",
		}, func() float64 {
			return float64(s.wsActive.Load())
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "nvgputop",
			Subsystem: "ws",
			Name:      "connections_total",
			Help:      "Total WebSocket connections accepted since start.",
		}, func() float64 {
			return float64(s.wsTotal.Load())
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "nvgputop",
			Subsystem: "ws",
			Name:      "rejected_total",
			Help:      "Total WebSocket connection attempts rejected due to capacity.",
		}, func() float64 {
			return float64(s.wsRejected.Load())
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "nvgputop",
			Subsystem: "ws",
			Name:      "messages_sent_total",
			Help:      "Total WebSocket messages sent to clients.",
		}, func() float64 {
			return float64(s.wsSent.Load())
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "nvgputop",
			Subsystem: "ws",
			Name:      "messages_dropped_total",
			Help:      "Total WebSocket messages dropped due to backpressure.",
		}, func() float64 {
			return float64(s.wsDropped.Load())
		}),
	}

	if s.collector != nil {
		collectors = append(collectors, prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "nvgputop",
			Subsystem: "sampler",
			Name:      "updates_dropped_total",
			Help:      "Total sampler updates discarded under the drop-oldest policy.",
		}, func() float64 {
			return float64(s.collector.Dropped())
		}))
	}

	if gpuCollector := newGPUMetricsCollector(s.device, s.collector); gpuCollector != nil {
		collectors = append(collectors, gpuCollector)
	}

	for _, collector := range collectors {
		registry.MustRegister(collector)
	}

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

type gpuMetricsCollector struct {
	collector *sampler.Manager
	uuid      string
	metrics   []gpuMetric
}

type gpuMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	extract   func(sample monitor.Sample) (float64, bool)
}

func newGPUMetricsCollector(device *monitor.StaticInfo, collector *sampler.Manager) prometheus.Collector {
	if collector == nil || device == nil {
		return nil
	}

	c := &gpuMetricsCollector{
		collector: collector,
		uuid:      device.UUID,
	}

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName("nvgputop", "gpu", name),
			help,
			[]string{"uuid"},
			nil,
		)
	}

	c.metrics = []gpuMetric{
		{
			desc:      desc("utilization_percent", "Current GPU core utilization percentage."),
			valueType: prometheus.GaugeValue,
			extract: func(sample monitor.Sample) (float64, bool) {
				return sample.Utilization, true
			},
		},
		{
			desc:      desc("memory_used_bytes", "Current device memory usage in bytes."),
			valueType: prometheus.GaugeValue,
			extract: func(sample monitor.Sample) (float64, bool) {
				return float64(sample.MemoryUsed), true
			},
		},
		{
			desc:      desc("memory_total_bytes", "Total device memory capacity in bytes."),
			valueType: prometheus.GaugeValue,
			extract: func(sample monitor.Sample) (float64, bool) {
				if sample.MemoryTotal == 0 {
					return 0, false
				}
				return float64(sample.MemoryTotal), true
			},
		},
		{
			desc:      desc("temperature_celsius", "Current GPU temperature in Celsius."),
			valueType: prometheus.GaugeValue,
			extract: func(sample monitor.Sample) (float64, bool) {
				return sample.Temperature, true
			},
		},
		{
			desc:      desc("core_clock_mhz", "Current graphics clock in MHz."),
			valueType: prometheus.GaugeValue,
			extract: func(sample monitor.Sample) (float64, bool) {
				if sample.CoreClockMHz == 0 {
					return 0, false
				}
				return float64(sample.CoreClockMHz), true
			},
		},
		{
			desc:      desc("memory_clock_mhz", "Current memory clock in MHz."),
			valueType: prometheus.GaugeValue,
			extract: func(sample monitor.Sample) (float64, bool) {
				if sample.MemoryClockMHz == 0 {
					return 0, false
				}
				return float64(sample.MemoryClockMHz), true
			},
		},
		{
			desc:      desc("power_watts", "Current GPU power draw in Watts."),
			valueType: prometheus.GaugeValue,
			extract: func(sample monitor.Sample) (float64, bool) {
				if sample.PowerLimit <= 0 {
					return 0, false
				}
				return sample.PowerUsage, true
			},
		},
		{
			desc:      desc("power_limit_watts", "Configured GPU power limit in Watts."),
			valueType: prometheus.GaugeValue,
			extract: func(sample monitor.Sample) (float64, bool) {
				if sample.PowerLimit <= 0 {
					return 0, false
				}
				return sample.PowerLimit, true
			},
		},
		{
			desc:      desc("fan_speed_percent", "Current fan speed percentage."),
			valueType: prometheus.GaugeValue,
			extract: func(sample monitor.Sample) (float64, bool) {
				return float64(sample.FanSpeed), true
			},
		},
		{
			desc:      desc("pcie_tx_kbps", "Current PCIe transmit throughput in KB/s."),
			valueType: prometheus.GaugeValue,
			extract: func(sample monitor.Sample) (float64, bool) {
				return sample.PCIeTxKBps, true
			},
		},
		{
			desc:      desc("pcie_rx_kbps", "Current PCIe receive throughput in KB/s."),
			valueType: prometheus.GaugeValue,
			extract: func(sample monitor.Sample) (float64, bool) {
				return sample.PCIeRxKBps, true
			},
		},
		{
			desc:      desc("sample_age_seconds", "Seconds elapsed since the latest sample was collected."),
			valueType: prometheus.GaugeValue,
			extract: func(sample monitor.Sample) (float64, bool) {
				if sample.CollectedAt.IsZero() {
					return 0, false
				}
				age := time.Since(sample.CollectedAt).Seconds()
				if age < 0 {
					age = 0
				}
				return age, true
			},
		},
	}

	return c
}

func (c *gpuMetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, metric := range c.metrics {
		ch <- metric.desc
	}
}

func (c *gpuMetricsCollector) Collect(ch chan<- prometheus.Metric) {
	sample, ok := c.collector.Latest()
	if !ok {
		return
	}
	for _, metric := range c.metrics {
		value, ok := metric.extract(sample)
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(metric.desc, metric.valueType, value, c.uuid)
	}
}
