package models

import "time"

// CancelHandle - отложенный вызов, который можно отменить. *time.Timer подходит.
type CancelHandle interface {
	Stop() bool
}

// Position - единственная живая позиция бота.
// FundingRate, EntryFee и FundingGain фиксируются при открытии и дальше не пересчитываются.
type Position struct {
	Symbol            string
	Side              Side
	EntryPrice        float64
	Quantity          float64
	EntryTime         time.Time
	StopOrderID       string
	TakeProfitOrderID string

	FundingRate   float64
	FundingTime   time.Time
	EntryFee      float64
	FundingGain   float64
	LastMarkPrice float64

	State          PositionState
	PendingCheck   CancelHandle
	CheckAt        time.Time
	CheckCompleted bool

	// позиция живая, но без стопа - нужен оператор
	Unprotected bool
}

// SlotStatus - снимок слота для /status и /healthz.
type SlotStatus struct {
	State          PositionState `json:"state"`
	Symbol         string        `json:"symbol,omitempty"`
	Side           Side          `json:"side,omitempty"`
	EntryPrice     float64       `json:"entryPrice,omitempty"`
	Quantity       float64       `json:"quantity,omitempty"`
	EntryTime      time.Time     `json:"entryTime,omitempty"`
	StopOrderID    string        `json:"stopOrderId,omitempty"`
	CheckAt        time.Time     `json:"checkAt,omitempty"`
	CheckCompleted bool          `json:"checkCompleted,omitempty"`
	Unprotected    bool          `json:"unprotected,omitempty"`
	Busy           bool          `json:"busy"`
}
