package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lounge_hub_connections",
		Help: "Live identified connections registered with the hub.",
	})
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lounge_hub_events_total",
		Help: "Inbound frames by message type.",
	}, []string{"type"})
	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lounge_hub_frames_dropped_total",
		Help: "Outbound frames dropped on send failure or backpressure.",
	})
)
