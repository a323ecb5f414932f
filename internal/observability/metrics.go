package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics holds the process-wide counters of the planning engine.
type EngineMetrics struct {
	rpcRequests    *prometheus.CounterVec
	rpcLatency     *prometheus.HistogramVec
	simulations    *prometheus.CounterVec
	probeAttempts  *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	routeSelected  *prometheus.CounterVec
	routeFallbacks prometheus.Counter
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics
)

// Engine returns the registered engine metrics.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yieldsplit_rpc_requests_total",
				Help: "Node JSON-RPC requests by method and outcome.",
			}, []string{"method", "outcome"}),
			rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "yieldsplit_rpc_latency_seconds",
				Help:    "Node JSON-RPC round trip latency by method.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method"}),
			simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yieldsplit_simulations_total",
				Help: "Plan simulations by outcome (ok, contract_error, transport_error).",
			}, []string{"outcome"}),
			probeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yieldsplit_probe_attempts_total",
				Help: "Ratio probe attempts by quote kind and outcome.",
			}, []string{"kind", "outcome"}),
			cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yieldsplit_cache_lookups_total",
				Help: "Process cache lookups by cache and result.",
			}, []string{"cache", "result"}),
			routeSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yieldsplit_liquidity_routes_total",
				Help: "Liquidity routes taken by add-liquidity calculations.",
			}, []string{"route"}),
			routeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "yieldsplit_liquidity_fallbacks_total",
				Help: "Single-sided additions that fell back to minting LP.",
			}),
		}
		prometheus.MustRegister(
			engineRegistry.rpcRequests,
			engineRegistry.rpcLatency,
			engineRegistry.simulations,
			engineRegistry.probeAttempts,
			engineRegistry.cacheLookups,
			engineRegistry.routeSelected,
			engineRegistry.routeFallbacks,
		)
	})
	return engineRegistry
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func (m *EngineMetrics) ObserveRPC(method string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	method = orUnknown(method)
	m.rpcRequests.WithLabelValues(method, outcome).Inc()
	m.rpcLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *EngineMetrics) ObserveSimulation(outcome string) {
	if m == nil {
		return
	}
	m.simulations.WithLabelValues(orUnknown(outcome)).Inc()
}

func (m *EngineMetrics) ObserveProbe(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	m.probeAttempts.WithLabelValues(orUnknown(kind), outcome).Inc()
}

func (m *EngineMetrics) ObserveCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(orUnknown(cache), result).Inc()
}

func (m *EngineMetrics) ObserveRoute(route string, fellBack bool) {
	if m == nil {
		return
	}
	m.routeSelected.WithLabelValues(orUnknown(route)).Inc()
	if fellBack {
		m.routeFallbacks.Inc()
	}
}
