package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_messages_sent_total",
			Help: "Total messages persisted",
		},
		[]string{"topology"},
	)

	RoomsMarkedRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_rooms_marked_read_total",
			Help: "Total mark-read operations",
		},
		[]string{"topology"},
	)

	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatrelay_ws_sessions",
			Help: "Currently connected websocket sessions",
		},
	)

	LiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatrelay_ws_subscriptions",
			Help: "Currently active room subscriptions",
		},
	)

	DroppedDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_ws_dropped_deliveries_total",
			Help: "Push deliveries dropped because a subscriber was slow",
		},
	)
)

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
