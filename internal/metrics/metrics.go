// Package metrics exposes prometheus counters for the hot paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fxsim_ticks_total", Help: "Count of market ticks published"},
		[]string{"symbol"},
	)
	BadTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fxsim_bad_ticks_total", Help: "Ticks rejected for invariant violations"},
	)
	SubscriberDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fxsim_subscriber_dropped_total", Help: "Events dropped on slow subscriber channels"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fxsim_trades_total", Help: "Executed trades"},
		[]string{"symbol", "side"},
	)
	TradeRejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fxsim_trade_rejects_total", Help: "Rejected trades by reason"},
		[]string{"reason"},
	)
	PersistenceFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fxsim_persistence_failures_total", Help: "Persistence transactions that failed or timed out"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		BadTicksTotal,
		SubscriberDropsTotal,
		TradesTotal,
		TradeRejectsTotal,
		PersistenceFailuresTotal,
	)
}

// Serve 启动 /metrics 端点，返回 server 以便关闭。
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
