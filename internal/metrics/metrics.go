// Package metrics exposes Prometheus counters for the ingestion and analytics pipelines.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "analytics_records_total", Help: "Analytics records persisted"},
		[]string{"pair", "timeframe"},
	)
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "engine_cycles_total", Help: "Completed engine cadence cycles"},
	)
	FailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "engine_failures_total", Help: "Transient fetch/persist failures"},
		[]string{"pair", "timeframe"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, RecordsTotal, CyclesTotal, FailuresTotal)
}

// Serve exposes /metrics on the given address in a background goroutine.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
