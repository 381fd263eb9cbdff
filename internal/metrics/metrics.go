// Package metrics определяет prometheus-коллекторы клиента.
// Метрики отдаются локальным сервером статуса на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AlertsReceived — количество принятых realtime-событий по темам.
	AlertsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipmonitor_alerts_received_total",
		Help: "Realtime alert messages received, by topic.",
	}, []string{"topic"})

	// MalformedMessages — количество отброшенных нечитаемых сообщений.
	MalformedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipmonitor_malformed_messages_total",
		Help: "Realtime messages dropped due to parse failure, by topic.",
	}, []string{"topic"})

	// ReconnectAttempts — количество запланированных переподключений.
	ReconnectAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipmonitor_reconnect_attempts_total",
		Help: "Scheduled websocket reconnect attempts, by topic.",
	}, []string{"topic"})

	// GuardDenials — количество отказов компонента авторизации.
	GuardDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipmonitor_guard_denials_total",
		Help: "Actions blocked by the access guard, by reason.",
	}, []string{"reason"})

	// ConnectionState — текущее состояние соединения по темам:
	// 0 — closed, 1 — connecting, 2 — open.
	ConnectionState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ipmonitor_connection_state",
		Help: "Websocket connection state by topic (0 closed, 1 connecting, 2 open).",
	}, []string{"topic"})

	// AlertsForwarded — количество событий, пересланных в RabbitMQ.
	AlertsForwarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipmonitor_alerts_forwarded_total",
		Help: "Alerts forwarded to the AMQP exchange, by outcome.",
	}, []string{"outcome"})

	// APIRequests — количество запросов к бэкенду по методу и исходу.
	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipmonitor_api_requests_total",
		Help: "Backend REST requests, by method and outcome.",
	}, []string{"method", "outcome"})
)

func init() {
	prometheus.MustRegister(
		AlertsReceived,
		MalformedMessages,
		ReconnectAttempts,
		GuardDenials,
		ConnectionState,
		AlertsForwarded,
		APIRequests,
	)
}
