// Package metrics defines the Prometheus collectors exported by the relay
// server. Call Register once at startup; the collectors are incremented
// directly by the session and transport packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "padlink"

	roleLabelName = "role"
)

var (
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "number of live sessions in the registry",
		})

	ConnectedClients = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "number of registered websocket clients by role",
		}, []string{roleLabelName})

	Registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "successful client registrations by role",
		}, []string{roleLabelName})

	RelayedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_messages_total",
			Help:      "controller frames relayed to game clients",
		})

	SweptSessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_sessions_total",
			Help:      "idle sessions removed by the expiry sweeper",
		})

	metricRegisterer prometheus.Registerer
)

// GetRegisterer returns the registerer passed to Register, or the
// Prometheus default when Register has not been called.
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register registers every collector defined by this package.
func Register(r prometheus.Registerer) {
	r.MustRegister(ActiveSessions)
	r.MustRegister(ConnectedClients)
	r.MustRegister(Registrations)
	r.MustRegister(RelayedMessages)
	r.MustRegister(SweptSessions)
	metricRegisterer = r
}
