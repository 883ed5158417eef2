// Package metrics exposes prometheus collectors for the poll loop and
// register-write engine, wired as an explicitly opt-in HTTP listener
// separate from the control socket.
package metrics

import (
	"net/http"

	"github.com/Boom-Hacker/nbfc-linux/internal/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so importing this package never
// collides with the default global one.
type Metrics struct {
	registry *prometheus.Registry

	loopFailures        prometheus.Counter
	registerWriteErrors prometheus.Counter
	fanCurrentSpeed     *prometheus.GaugeVec
	fanTargetSpeed      *prometheus.GaugeVec
	fanRequestedSpeed   *prometheus.GaugeVec
	fanTemperature      *prometheus.GaugeVec
	fanCritical         *prometheus.GaugeVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loopFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nbfc",
			Name:      "loop_failures_total",
			Help:      "Total poll loop tick failures.",
		}),
		registerWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nbfc",
			Name:      "register_write_errors_total",
			Help:      "Total EC register write failures.",
		}),
		fanCurrentSpeed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nbfc",
			Name:      "fan_current_speed_percent",
			Help:      "Fan speed read back from the EC, as a percentage.",
		}, []string{"fan"}),
		fanTargetSpeed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nbfc",
			Name:      "fan_target_speed_percent",
			Help:      "Fan speed the control loop is driving toward, as a percentage.",
		}, []string{"fan"}),
		fanRequestedSpeed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nbfc",
			Name:      "fan_requested_speed_percent",
			Help:      "Last user-requested fixed speed, as a percentage.",
		}, []string{"fan"}),
		fanTemperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nbfc",
			Name:      "fan_temperature_celsius",
			Help:      "Filtered temperature feeding this fan's control loop.",
		}, []string{"fan"}),
		fanCritical: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nbfc",
			Name:      "fan_critical",
			Help:      "1 if the fan is currently forced to full speed by CriticalTemperature.",
		}, []string{"fan"}),
	}

	m.registry.MustRegister(
		m.loopFailures,
		m.registerWriteErrors,
		m.fanCurrentSpeed,
		m.fanTargetSpeed,
		m.fanRequestedSpeed,
		m.fanTemperature,
		m.fanCritical,
	)
	return m
}

// Handler serves the registry on /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncLoopFailure records one poll loop tick failure.
func (m *Metrics) IncLoopFailure() { m.loopFailures.Inc() }

// IncRegisterWriteError records one failed EC register write.
func (m *Metrics) IncRegisterWriteError() { m.registerWriteErrors.Inc() }

// Observe refreshes every per-fan gauge from a status snapshot.
func (m *Metrics) Observe(status daemon.Status) {
	for _, f := range status.Fans {
		m.fanCurrentSpeed.WithLabelValues(f.Name).Set(f.CurrentSpeed)
		m.fanTargetSpeed.WithLabelValues(f.Name).Set(f.TargetSpeed)
		m.fanRequestedSpeed.WithLabelValues(f.Name).Set(f.RequestedSpeed)
		m.fanTemperature.WithLabelValues(f.Name).Set(f.Temperature)
		critical := 0.0
		if f.Critical {
			critical = 1.0
		}
		m.fanCritical.WithLabelValues(f.Name).Set(critical)
	}
}
