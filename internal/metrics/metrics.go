// Package metrics exposes Prometheus series the bot updates during operation:
//   - bot_signals_total{status}            – signals by terminal status
//   - bot_dedup_hits_total                 – signals dropped as duplicates
//   - bot_orders_total{side,reduce_only}   – orders placed
//   - bot_exits_total{reason}              – exits split by reason
//   - bot_equity_usd                       – last fetched equity (gauge)
//   - bot_position_size                    – current position quantity (gauge)
//
// Registered in init() and served at /metrics in Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_signals_total",
			Help: "Signals handled, by terminal status",
		},
		[]string{"status"},
	)

	DedupHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_dedup_hits_total",
			Help: "Signals discarded as duplicates within the cooldown window",
		},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Orders placed",
		},
		[]string{"side", "reduce_only"},
	)

	Exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_exits_total",
			Help: "Exit orders split by reason",
		},
		[]string{"reason"},
	)

	Equity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_equity_usd",
			Help: "Last fetched account equity in USD",
		},
	)

	PositionSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_position_size",
			Help: "Current tracked position quantity",
		},
	)
)

func init() {
	prometheus.MustRegister(Signals, DedupHits, Orders, Exits, Equity, PositionSize)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
