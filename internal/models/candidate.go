package models

import "time"

// TradeMetrics - расчёт сделки для конкретной цены входа.
type TradeMetrics struct {
	Notional        float64
	Quantity        float64
	EntryFee        float64
	StopPrice       float64
	TakeProfitPrice float64 // 0 - без тейка
	FundingGain     float64

	NetLossAtStop     float64
	NetProfitAtTarget float64
}

// Candidate живёт один тик опроса.
type Candidate struct {
	Symbol          string
	FundingRate     float64
	NextFundingTime time.Time
	MarkPrice       float64
	Metrics         *TradeMetrics
	MsToFunding     int64 // < 0 - фандинг уже прошёл
}
