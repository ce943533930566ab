package models

import "time"

type CloseReason string

const (
	CloseStopHit          CloseReason = "STOP_HIT"
	CloseTakeProfitHit    CloseReason = "TAKE_PROFIT_HIT"
	CloseAfterProfitCheck CloseReason = "CLOSED_AFTER_PROFIT_CHECK"
	CloseOther            CloseReason = "CLOSED_OTHER"
	CloseUnknown          CloseReason = "CLOSED_UNKNOWN"
	CloseEmergencyUnwind  CloseReason = "EMERGENCY_UNWIND"
)

// TradeRecord - запись истории, после добавления не меняется.
type TradeRecord struct {
	ID          string      `json:"id"`
	ClosedAt    time.Time   `json:"closedAt"`
	Symbol      string      `json:"symbol"`
	Side        Side        `json:"side"`
	EntryPrice  float64     `json:"entryPrice"`
	ExitPrice   float64     `json:"exitPrice"`
	Quantity    float64     `json:"quantity"`
	RealizedPnl float64     `json:"realizedPnl"`
	Reason      CloseReason `json:"reason"`
	EntryTime   time.Time   `json:"entryTime"`
}
