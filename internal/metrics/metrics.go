// Package metrics exposes scanguard's operational counters over a
// Prometheus HTTP endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	PacketsReceived prometheus.Counter
	ParseErrors     prometheus.Counter
	AlertsTotal     *prometheus.CounterVec
	TrackedIPs      prometheus.Gauge
	CleanedIPs      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanguard_packets_received_total",
			Help: "Total UDP datagrams received by the listener",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanguard_parse_errors_total",
			Help: "Total log lines that failed to parse",
		}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanguard_alerts_total",
			Help: "Total scan alerts raised, by scan type",
		}, []string{"scan_type"}),
		TrackedIPs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanguard_tracked_ips",
			Help: "Source IPs currently under observation",
		}),
		CleanedIPs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanguard_cleaned_ips_total",
			Help: "Total idle source IPs removed by the cleanup task",
		}),
	}
}

// Register registers every collector with the given registry.
func (m *Metrics) Register(registry prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.PacketsReceived,
		m.ParseErrors,
		m.AlertsTotal,
		m.TrackedIPs,
		m.CleanedIPs,
	} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}
