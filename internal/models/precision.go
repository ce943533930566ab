package models

// InstrumentPrecision - ограничения инструмента, читаются один раз при старте.
type InstrumentPrecision struct {
	Symbol            string
	PricePrecision    int32
	QuantityPrecision int32
	MinQty            float64
	TickSize          float64
}

// PrecisionTable symbol -> precision.
type PrecisionTable map[string]InstrumentPrecision

func (t PrecisionTable) Lookup(symbol string) (*InstrumentPrecision, bool) {
	p, ok := t[symbol]
	if !ok {
		return nil, false
	}
	return &p, true
}
