// Package metrics - prometheus-метрики бота, отдаются на /metrics admin-сервера.
//
//	funding_bot_ticks_total{result}          тики опроса (ok|empty|error)
//	funding_bot_candidates                   размер шорт-листа на последнем тике
//	funding_bot_orders_total{kind,result}    ордера (market|stop|take_profit|cancel)
//	funding_bot_entries_total{result}        входы (opened|rejected|simulated|unwound)
//	funding_bot_profit_checks_total{result}  отложенные проверки (close|hold|stale|retry|error)
//	funding_bot_trades_total{reason}         записи истории по причине закрытия
//	funding_bot_realized_pnl_usd             накопленный PnL по истории
//	funding_bot_position_open                1 если слот занят
//	funding_bot_fatal_manual_total           ситуации, где нужен оператор
//	funding_bot_exchange_errors_total{op,kind}
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funding_bot_ticks_total",
			Help: "Poll ticks by result",
		},
		[]string{"result"},
	)

	Candidates = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "funding_bot_candidates",
			Help: "Ranked candidates on the last tick",
		},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funding_bot_orders_total",
			Help: "Orders sent to the exchange",
		},
		[]string{"kind", "result"},
	)

	Entries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funding_bot_entries_total",
			Help: "Entry sequences by outcome",
		},
		[]string{"result"},
	)

	ProfitChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funding_bot_profit_checks_total",
			Help: "Deferred profit checks by outcome",
		},
		[]string{"result"},
	)

	Trades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funding_bot_trades_total",
			Help: "Trade history records by close reason",
		},
		[]string{"reason"},
	)

	RealizedPnl = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "funding_bot_realized_pnl_usd",
			Help: "Cumulative realized PnL of recorded trades",
		},
	)

	PositionOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "funding_bot_position_open",
			Help: "1 while the position slot is occupied",
		},
	)

	FatalManual = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "funding_bot_fatal_manual_total",
			Help: "Conditions that require manual intervention",
		},
	)

	ExchangeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funding_bot_exchange_errors_total",
			Help: "Normalized exchange errors",
		},
		[]string{"op", "kind"},
	)
)

func init() {
	prometheus.MustRegister(
		Ticks,
		Candidates,
		Orders,
		Entries,
		ProfitChecks,
		Trades,
		RealizedPnl,
		PositionOpen,
		FatalManual,
		ExchangeErrors,
	)
}
