package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// CartSync records reconciliation activity of a cart engine.
type CartSync struct {
	duration  *prometheus.HistogramVec
	calls     *prometheus.CounterVec
	coalesced *prometheus.CounterVec
	loads     *prometheus.CounterVec
}

// NewCartSync registers the cart sync collectors on the provided registerer.
func NewCartSync(reg prometheus.Registerer) *CartSync {
	if reg == nil {
		return &CartSync{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_sync_call_duration_seconds",
		Help:    "Duration of cart sync calls against the server cart.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_calls_total",
		Help: "Cart sync calls by operation and result.",
	}, []string{"op", "result"})
	coalesced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_coalesced_total",
		Help: "Mutations folded into an already running sync for the same line.",
	}, []string{"op"})
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_loads_total",
		Help: "Cart loads by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, calls, coalesced, loads)
	return &CartSync{
		duration:  duration,
		calls:     calls,
		coalesced: coalesced,
		loads:     loads,
	}
}

// SyncFinished records one completed server call.
func (c *CartSync) SyncFinished(op string, err error, d time.Duration) {
	if c == nil || c.calls == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultError
	}
	op = normalizeLabel(op)
	c.calls.WithLabelValues(op, result).Inc()
	c.duration.WithLabelValues(op).Observe(d.Seconds())
}

// SyncCoalesced records a mutation absorbed by an in-flight sync.
func (c *CartSync) SyncCoalesced(op string) {
	if c == nil || c.coalesced == nil {
		return
	}
	c.coalesced.WithLabelValues(normalizeLabel(op)).Inc()
}

// LoadFinished records how a load resolved.
func (c *CartSync) LoadFinished(outcome string) {
	if c == nil || c.loads == nil {
		return
	}
	c.loads.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
