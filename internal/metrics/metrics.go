// Package metrics exposes monitor state as Prometheus collectors on a
// private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/aquaponics-monitor/internal/report"
	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

const namespace = "aquaponics"

// Metrics holds the monitor's collectors.
type Metrics struct {
	registry          *prometheus.Registry
	reading           *prometheus.GaugeVec
	acquisitionErrors *prometheus.CounterVec
	reports           *prometheus.CounterVec
	alarmActive       prometheus.Gauge
	ticks             prometheus.Counter
}

// New creates and registers every collector, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reading",
			Help:      "Last good value of each monitored channel.",
		}, []string{"channel"}),
		acquisitionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisition_errors_total",
			Help:      "Failed sensor acquisitions by channel and error code.",
		}, []string{"channel", "code"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Report attempts by outcome.",
		}, []string{"result"}),
		alarmActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alarm_active",
			Help:      "1 while an alarm is active.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Scheduler ticks processed.",
		}),
	}

	m.registry.MustRegister(
		m.reading,
		m.acquisitionErrors,
		m.reports,
		m.alarmActive,
		m.ticks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Pre-create outcome series so rates work from the first scrape.
	for _, r := range []string{"ok", "connect_error", "publish_error"} {
		m.reports.WithLabelValues(r)
	}

	return m
}

// ObserveReadings publishes the valid readings of one acquisition.
func (m *Metrics) ObserveReadings(readings []sensor.Reading) {
	for _, r := range readings {
		if r.Valid {
			m.reading.WithLabelValues(string(r.Channel)).Set(r.Value)
		}
	}
}

// AcquisitionError counts a failed acquisition.
func (m *Metrics) AcquisitionError(ch sensor.Channel, code sensor.Code) {
	m.acquisitionErrors.WithLabelValues(string(ch), string(code)).Inc()
}

// Report counts a report attempt by outcome.
func (m *Metrics) Report(err error) {
	m.reports.WithLabelValues(report.Outcome(err)).Inc()
}

// SetAlarm records whether an alarm is active.
func (m *Metrics) SetAlarm(active bool) {
	if active {
		m.alarmActive.Set(1)
	} else {
		m.alarmActive.Set(0)
	}
}

// Tick counts a processed tick.
func (m *Metrics) Tick() {
	m.ticks.Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
