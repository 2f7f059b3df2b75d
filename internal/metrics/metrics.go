package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts what the engine detects and what the executor
// actually did about it. Registered on a private registry so tests can
// create as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	Detections    *prometheus.CounterVec
	Actions       *prometheus.CounterVec
	ActionErrors  *prometheus.CounterVec
	LockdownGauge *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spamwarden_detections_total",
			Help: "Rule violations detected, by detection type.",
		}, []string{"detection"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spamwarden_actions_total",
			Help: "Enforcement actions executed, by action.",
		}, []string{"action"}),
		ActionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spamwarden_action_errors_total",
			Help: "Enforcement actions that failed, by action.",
		}, []string{"action"}),
		LockdownGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "spamwarden_lockdown_active",
			Help: "1 while a guild is locked down.",
		}, []string{"guild_id"}),
	}
	m.registry.MustRegister(m.Detections, m.Actions, m.ActionErrors, m.LockdownGauge)
	return m
}

// Handler serves the registry for the health server's /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
