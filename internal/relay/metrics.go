// internal/relay/metrics.go
package relay

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MaxPlayerSeries caps the distinct targets tracked by the players gauge.
// Targets come from widgets, so the label set is otherwise unbounded.
const MaxPlayerSeries = 256

// Metrics holds the relay collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	lookup      *prometheus.HistogramVec
	players     *prometheus.GaugeVec
	inFlight    prometheus.Gauge
	subscribers prometheus.Gauge

	mu      sync.Mutex
	targets map[string]struct{}
}

// NewMetrics registers the relay collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mcstatus_relay_requests_total",
			Help: "Ping requests handled, by outcome",
		}, []string{"outcome"}),
		lookup: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcstatus_relay_lookup_seconds",
			Help:    "Duration of status API lookups",
			Buckets: prometheus.DefBuckets,
		}, []string{"edition"}),
		players: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mcstatus_relay_players",
			Help: "Online players reported by the last lookup",
		}, []string{"host"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "mcstatus_relay_inflight_requests",
			Help: "Lookups currently waiting on the status API",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "mcstatus_relay_subscribers",
			Help: "Connected broadcast subscribers",
		}),
		targets: make(map[string]struct{}),
	}
}

// SetSubscribers is wired to the broadcaster subscriber count callback.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

func (m *Metrics) outcome(o Outcome) {
	if m == nil {
		return
	}
	m.requests.With(prometheus.Labels{"outcome": string(o)}).Inc()
}

func (m *Metrics) observeLookup(bedrock bool, d time.Duration) {
	if m == nil {
		return
	}
	m.lookup.With(prometheus.Labels{"edition": edition(bedrock)}).Observe(d.Seconds())
}

func (m *Metrics) setPlayers(host string, port int, n int) {
	if m == nil {
		return
	}
	target := host + ":" + strconv.Itoa(port)

	m.mu.Lock()
	_, known := m.targets[target]
	if !known {
		if len(m.targets) >= MaxPlayerSeries {
			m.mu.Unlock()
			return
		}
		m.targets[target] = struct{}{}
	}
	m.mu.Unlock()

	g, err := m.players.GetMetricWith(prometheus.Labels{"host": target})
	if err != nil {
		slog.Warn("Players gauge rejected target", "target", target, "error", err)
		m.mu.Lock()
		delete(m.targets, target)
		m.mu.Unlock()
		return
	}
	g.Set(float64(n))
}

func (m *Metrics) begin() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) end() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

func edition(bedrock bool) string {
	if bedrock {
		return "bedrock"
	}
	return "java"
}
