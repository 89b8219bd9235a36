package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections_active",
			Help: "Number of active WebSocket connections.",
		},
	)

	OnlineUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_online_users",
			Help: "Number of users with at least one active connection.",
		},
	)

	EventsInboundTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_inbound_total",
			Help: "Total number of inbound WebSocket events.",
		},
		[]string{"type", "result"},
	)

	FanoutDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_fanout_deliveries_total",
			Help: "Total number of outbound event deliveries.",
		},
		[]string{"scope"},
	)

	BusMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_bus_messages_total",
			Help: "Total number of cross-process bus messages.",
		},
		[]string{"direction"},
	)
)

// MustRegister 把所有指标注册到默认 Registry，service 作为常量标签附加。
func MustRegister(serviceName string) {
	r := prometheus.WrapRegistererWith(
		prometheus.Labels{"service": serviceName},
		prometheus.DefaultRegisterer,
	)
	r.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		ConnectionsActive,
		OnlineUsers,
		EventsInboundTotal,
		FanoutDeliveriesTotal,
		BusMessagesTotal,
	)
}
