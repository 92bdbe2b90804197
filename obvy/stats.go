package geiger

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsInternal is the self-telemetry registry served on /metrics.
// It uses a private prometheus registry so tests can run any number
// of instances side by side.
type StatsInternal struct {
	Registry  *prometheus.Registry
	Pulses    prometheus.Counter
	Resets    prometheus.Counter
	WSClients prometheus.Gauge
	WWW       *prometheus.CounterVec
	SnapTimer prometheus.Histogram
}

func NewStatsInternal() *StatsInternal {
	s := &StatsInternal{
		Registry: prometheus.NewRegistry(),
		Pulses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geiger_pulses_total",
			Help: "Pulses recorded since process start",
		}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geiger_resets_total",
			Help: "Acquisition state resets",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geiger_ws_clients",
			Help: "Currently connected websocket observers",
		}),
		WWW: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geiger_http_requests_total",
			Help: "API requests by status code and method",
		}, []string{"code", "method"}),
		SnapTimer: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "geiger_snapshot_broadcast_seconds",
			Help:    "Time spent building and fanning out one snapshot",
			Buckets: prometheus.DefBuckets,
		}),
	}

	s.Registry.MustRegister(s.Pulses, s.Resets, s.WSClients, s.WWW, s.SnapTimer)
	return s
}

// Handler serves this registry for the /metrics route
func (s *StatsInternal) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})
}

func (s *StatsInternal) RecPulse()                 { s.Pulses.Inc() }
func (s *StatsInternal) RecReset()                 { s.Resets.Inc() }
func (s *StatsInternal) RecWWW(code, method string) { s.WWW.WithLabelValues(code, method).Inc() }
func (s *StatsInternal) RecSnapTimer(sec float64)  { s.SnapTimer.Observe(sec) }
func (s *StatsInternal) AddWSClient()              { s.WSClients.Inc() }
func (s *StatsInternal) DelWSClient()              { s.WSClients.Dec() }
