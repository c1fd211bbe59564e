package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements the session metrics sink plus gauges for
// the realtime hub.
type PrometheusCollector struct {
	adoptsTotal           prometheus.Counter
	releasesTotal         *prometheus.CounterVec
	heartbeatsTotal       prometheus.Counter
	handoffsTotal         prometheus.Counter
	takeoverRequestsTotal *prometheus.CounterVec

	seatOwned prometheus.Gauge
	seatLive  prometheus.Gauge

	realtimeClients prometheus.Gauge
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		adoptsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hudcast_seat_adopts_total",
			Help: "Total number of successful seat adoptions",
		}),

		releasesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hudcast_seat_releases_total",
			Help: "Total number of seat releases by reason",
		}, []string{"reason"}),

		heartbeatsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hudcast_seat_heartbeats_total",
			Help: "Total number of accepted owner heartbeats",
		}),

		handoffsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hudcast_seat_handoffs_total",
			Help: "Total number of accepted takeover handoffs",
		}),

		takeoverRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hudcast_takeover_requests_total",
			Help: "Total number of takeover requests by outcome",
		}, []string{"outcome"}),

		seatOwned: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hudcast_seat_owned",
			Help: "Whether the streamer seat currently has an owner (0 or 1)",
		}),

		seatLive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hudcast_seat_live",
			Help: "Whether the owner is currently live (0 or 1)",
		}),

		realtimeClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hudcast_realtime_clients",
			Help: "Number of connected realtime websocket clients",
		}),
	}
}

func (p *PrometheusCollector) RecordAdopt() {
	p.adoptsTotal.Inc()
}

func (p *PrometheusCollector) RecordRelease(reason string) {
	p.releasesTotal.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) RecordHeartbeat() {
	p.heartbeatsTotal.Inc()
}

func (p *PrometheusCollector) RecordHandoff() {
	p.handoffsTotal.Inc()
}

func (p *PrometheusCollector) RecordTakeoverRequest(outcome string) {
	p.takeoverRequestsTotal.WithLabelValues(outcome).Inc()
}

func (p *PrometheusCollector) SetSeatState(owned, live bool) {
	p.seatOwned.Set(boolGauge(owned))
	p.seatLive.Set(boolGauge(live))
}

func (p *PrometheusCollector) SetRealtimeClients(n int) {
	p.realtimeClients.Set(float64(n))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
