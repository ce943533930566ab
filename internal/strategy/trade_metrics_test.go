package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funding_bot/internal/models"
)

func longParams() Params {
	return Params{
		Side:                   models.SideLong,
		QuoteAsset:             "USDT",
		FundingRateThreshold:   -0.001,
		RequireNegativeFunding: true,
		InvestmentUSD:          300,
		Leverage:               10,
		StopLossPct:            0.007,
		MakerFee:               0.0002,
		TakerFee:               0.0005,
		TopN:                   10,
	}
}

func prec(qp, pp int32, minQty, tick float64) *models.InstrumentPrecision {
	return &models.InstrumentPrecision{
		Symbol:            "TESTUSDT",
		PricePrecision:    pp,
		QuantityPrecision: qp,
		MinQty:            minQty,
		TickSize:          tick,
	}
}

func TestComputeMetrics_Long(t *testing.T) {
	m := ComputeMetrics(100, prec(3, 2, 0.001, 0.1), -0.002, longParams())
	require.NotNil(t, m)

	assert.InDelta(t, 3000, m.Notional, 1e-9)
	assert.InDelta(t, 30, m.Quantity, 1e-9)
	assert.InDelta(t, 6.0, m.FundingGain, 1e-9)
	assert.InDelta(t, 1.5, m.EntryFee, 1e-9)
	assert.InDelta(t, 99.3, m.StopPrice, 1e-9)
	assert.Less(t, m.StopPrice, 100.0)
	// 3000*0.007 + 1.5 + 2979*0.0005
	assert.InDelta(t, 23.9895, m.NetLossAtStop, 1e-9)
	assert.Zero(t, m.TakeProfitPrice)
}

func TestComputeMetrics_Short(t *testing.T) {
	p := longParams()
	p.Side = models.SideShort
	p.StopLossPct = 0.01
	p.TakeProfitPct = 0.03

	m := ComputeMetrics(100, prec(3, 2, 0.001, 0.1), -0.002, p)
	require.NotNil(t, m)

	assert.InDelta(t, 101, m.StopPrice, 1e-9)
	assert.InDelta(t, 97, m.TakeProfitPrice, 1e-9)
	// шорт при отрицательной ставке платит
	assert.InDelta(t, -6.0, m.FundingGain, 1e-9)
	// 3000*0.03 - 1.5 - 2910*0.0002
	assert.InDelta(t, 87.918, m.NetProfitAtTarget, 1e-9)
}

func TestComputeMetrics_Rejects(t *testing.T) {
	p := longParams()

	tests := []struct {
		name  string
		entry float64
		prec  *models.InstrumentPrecision
		rate  float64
		p     func(Params) Params
	}{
		{name: "non positive entry", entry: 0, prec: prec(3, 2, 0.001, 0.1), rate: -0.002},
		{name: "negative entry", entry: -5, prec: prec(3, 2, 0.001, 0.1), rate: -0.002},
		{name: "missing precision", entry: 100, prec: nil, rate: -0.002},
		{name: "non negative funding", entry: 100, prec: prec(3, 2, 0.001, 0.1), rate: 0},
		{name: "below min qty", entry: 100, prec: prec(3, 2, 50, 0.1), rate: -0.002},
		{name: "floored to zero", entry: 5000, prec: prec(0, 2, 0, 0.1), rate: -0.002},
		{
			name: "stop rounds onto entry", entry: 100, prec: prec(3, 0, 0.001, 1), rate: -0.002,
			p: func(p Params) Params { p.StopLossPct = 0.0001; return p },
		},
		{
			name: "short stop rounds onto entry", entry: 100, prec: prec(3, 0, 0.001, 1), rate: -0.002,
			p: func(p Params) Params { p.Side = models.SideShort; p.StopLossPct = 0.0001; return p },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pp := p
			if tt.p != nil {
				pp = tt.p(pp)
			}
			assert.Nil(t, ComputeMetrics(tt.entry, tt.prec, tt.rate, pp))
		})
	}
}

func TestComputeMetrics_PositiveFundingAllowed(t *testing.T) {
	p := longParams()
	p.RequireNegativeFunding = false

	m := ComputeMetrics(100, prec(3, 2, 0.001, 0.1), 0.001, p)
	require.NotNil(t, m)
	assert.InDelta(t, -3.0, m.FundingGain, 1e-9)
}
