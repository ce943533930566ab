package models

// Side - направление позиции, фиксировано на весь запуск.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// OrderSide - сторона ордера на бирже.
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// EntrySide сторона входного ордера.
func (s Side) EntrySide() OrderSide {
	if s == SideShort {
		return OrderSell
	}
	return OrderBuy
}

// CloseSide сторона reduce-only ордера, закрывающего позицию.
func (s Side) CloseSide() OrderSide {
	if s == SideShort {
		return OrderBuy
	}
	return OrderSell
}

func (s Side) Valid() bool { return s == SideLong || s == SideShort }

// EntryTimingPolicy - когда входить относительно момента фандинга.
type EntryTimingPolicy string

const (
	EntryPreFunding  EntryTimingPolicy = "pre_funding"
	EntryPostFunding EntryTimingPolicy = "post_funding"
	EntryImmediate   EntryTimingPolicy = "immediate"
)

func (p EntryTimingPolicy) Valid() bool {
	switch p {
	case EntryPreFunding, EntryPostFunding, EntryImmediate:
		return true
	}
	return false
}

// ExitPolicy - как выходим из позиции.
type ExitPolicy string

const (
	ExitProfitCheck ExitPolicy = "profit_check"
	ExitFixedTPSL   ExitPolicy = "fixed_tp_sl"
)

func (p ExitPolicy) Valid() bool { return p == ExitProfitCheck || p == ExitFixedTPSL }

// PositionState - состояние единственного слота позиции.
type PositionState string

const (
	StateEmpty              PositionState = "EMPTY"
	StateOpening            PositionState = "OPENING"
	StateOpen               PositionState = "OPEN"
	StateProfitCheckPending PositionState = "PROFIT_CHECK_PENDING"
	StateClosing            PositionState = "CLOSING"
	StateEmergencyUnwind    PositionState = "EMERGENCY_UNWIND"
)
