package models

import "time"

type FundingEntry struct {
	Symbol          string
	FundingRate     float64
	MarkPrice       float64
	NextFundingTime time.Time
}

type OrderResult struct {
	OrderID   string
	FilledQty float64
	AvgPrice  float64 // 0 если биржа не вернула среднюю цену
	FillTime  time.Time
}

type Fill struct {
	OrderID     string
	Side        OrderSide
	Price       float64
	Quantity    float64
	RealizedPnl float64
	Time        time.Time
}

// PositionInfo - позиция по данным биржи, Amount со знаком.
type PositionInfo struct {
	Symbol        string
	Amount        float64
	MarkPrice     float64
	UnrealizedPnl float64
}
