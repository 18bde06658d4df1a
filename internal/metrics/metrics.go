// Package metrics exposes Prometheus counters and gauges for a streaming session.
//
// All methods are safe on a nil *Metrics, which disables recording.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the stream client.
type Metrics struct {
	registry          *prometheus.Registry
	controllerEvents  prometheus.Counter
	mouseMoves        prometheus.Counter
	overlayRequests   prometheus.Counter
	interrupts        *prometheus.CounterVec
	stageFailures     prometheus.Counter
	activeControllers prometheus.Gauge
	connectionOkay    prometheus.Gauge
}

// New creates and registers the metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	controllerEvents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viistream_controller_events_total",
		Help: "Total number of controller state events sent to the peer",
	})
	mouseMoves := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viistream_mouse_moves_total",
		Help: "Total number of relative mouse moves sent to the peer",
	})
	overlayRequests := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viistream_overlay_requests_total",
		Help: "Total number of overlay open requests raised by the quit combo",
	})
	interrupts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viistream_session_interrupts_total",
		Help: "Total number of session interruptions by reason",
	}, []string{"reason"})
	stageFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viistream_stage_failures_total",
		Help: "Total number of connection stages reported as failed",
	})
	activeControllers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "viistream_active_controllers",
		Help: "Number of controller slots claimed in the current session",
	})
	connectionOkay := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "viistream_connection_okay",
		Help: "1 while the transport reports okay connection quality, 0 when poor",
	})

	registry.MustRegister(
		controllerEvents,
		mouseMoves,
		overlayRequests,
		interrupts,
		stageFailures,
		activeControllers,
		connectionOkay,
	)

	return &Metrics{
		registry:          registry,
		controllerEvents:  controllerEvents,
		mouseMoves:        mouseMoves,
		overlayRequests:   overlayRequests,
		interrupts:        interrupts,
		stageFailures:     stageFailures,
		activeControllers: activeControllers,
		connectionOkay:    connectionOkay,
	}
}

// IncControllerEvents counts one controller event sent.
func (m *Metrics) IncControllerEvents() {
	if m == nil {
		return
	}
	m.controllerEvents.Inc()
}

// IncMouseMoves counts one mouse move sent.
func (m *Metrics) IncMouseMoves() {
	if m == nil {
		return
	}
	m.mouseMoves.Inc()
}

// IncOverlayRequests counts one overlay request.
func (m *Metrics) IncOverlayRequests() {
	if m == nil {
		return
	}
	m.overlayRequests.Inc()
}

// IncInterrupts counts one interruption with the given reason label.
func (m *Metrics) IncInterrupts(reason string) {
	if m == nil {
		return
	}
	m.interrupts.WithLabelValues(reason).Inc()
}

// IncStageFailures counts one failed connection stage.
func (m *Metrics) IncStageFailures() {
	if m == nil {
		return
	}
	m.stageFailures.Inc()
}

// SetActiveControllers sets the active controllers gauge.
func (m *Metrics) SetActiveControllers(n int) {
	if m == nil {
		return
	}
	m.activeControllers.Set(float64(n))
}

// SetConnectionOkay records the last reported connection quality.
func (m *Metrics) SetConnectionOkay(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.connectionOkay.Set(1)
	} else {
		m.connectionOkay.Set(0)
	}
}

// Registry returns the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
