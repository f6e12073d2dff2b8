// Package metrics exposes prometheus instrumentation for the trading
// loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "crossbot_ticks_total", Help: "Last-price ticks ingested"},
		[]string{"symbol"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "crossbot_orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "crossbot_executions_total", Help: "Executions recorded in the ledger"},
		[]string{"symbol", "side"},
	)
	DuplicateExecutionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "crossbot_duplicate_executions_total", Help: "Redelivered execution reports absorbed by dedup"},
	)
	GateOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "crossbot_gate_open", Help: "1 when new order submission is permitted"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, OrdersTotal, ExecutionsTotal, DuplicateExecutionsTotal, GateOpen)
}

// Serve starts the /metrics endpoint on addr and returns the server for
// shutdown.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
