package strategy

import (
	"math"

	"github.com/shopspring/decimal"

	"funding_bot/internal/helper"
	"funding_bot/internal/models"
)

// ComputeMetrics считает объём, стоп, комиссии и оценку фандинга для входа по entryPrice.
// nil - инструмент не торгуется при текущих настройках, это не ошибка.
func ComputeMetrics(entryPrice float64, prec *models.InstrumentPrecision, fundingRate float64, p Params) *models.TradeMetrics {
	if prec == nil || !(entryPrice > 0) || math.IsInf(entryPrice, 0) {
		return nil
	}
	if p.InvestmentUSD <= 0 || p.Leverage <= 0 {
		return nil
	}
	if p.RequireNegativeFunding && !(fundingRate < 0) {
		return nil
	}

	entry := decimal.NewFromFloat(entryPrice)
	notional := decimal.NewFromFloat(p.InvestmentUSD).Mul(decimal.NewFromInt(int64(p.Leverage)))

	qty := notional.Div(entry).RoundFloor(prec.QuantityPrecision)
	if !qty.IsPositive() || qty.LessThan(decimal.NewFromFloat(prec.MinQty)) {
		return nil
	}

	sl := decimal.NewFromFloat(p.StopLossPct)
	one := decimal.NewFromInt(1)
	taker := decimal.NewFromFloat(p.TakerFee)
	maker := decimal.NewFromFloat(p.MakerFee)

	// стоп строго на убыточной стороне от входа
	var stopRaw decimal.Decimal
	if p.Side == models.SideShort {
		stopRaw = entry.Mul(one.Add(sl))
	} else {
		stopRaw = entry.Mul(one.Sub(sl))
	}
	stopF, _ := stopRaw.Float64()
	stop := helper.SnapToTick(stopF, prec.TickSize, prec.PricePrecision)
	if !stop.IsPositive() {
		return nil
	}
	if p.Side == models.SideShort {
		if !stop.GreaterThan(entry) {
			return nil
		}
	} else if !stop.LessThan(entry) {
		return nil
	}

	rate := decimal.NewFromFloat(fundingRate)
	fundingGain := notional.Mul(rate)
	if p.Side != models.SideShort {
		fundingGain = fundingGain.Neg()
	}

	entryFee := notional.Mul(taker)

	var stopNotional decimal.Decimal
	if p.Side == models.SideShort {
		stopNotional = notional.Mul(one.Add(sl))
	} else {
		stopNotional = notional.Mul(one.Sub(sl))
	}
	netLoss := notional.Mul(sl).Add(entryFee).Add(stopNotional.Mul(taker))

	m := &models.TradeMetrics{
		Notional:      notional.InexactFloat64(),
		Quantity:      qty.InexactFloat64(),
		EntryFee:      entryFee.InexactFloat64(),
		StopPrice:     stop.InexactFloat64(),
		FundingGain:   fundingGain.InexactFloat64(),
		NetLossAtStop: netLoss.InexactFloat64(),
	}

	if p.TakeProfitPct > 0 {
		tp := decimal.NewFromFloat(p.TakeProfitPct)
		var tpRaw, tpNotional decimal.Decimal
		if p.Side == models.SideShort {
			tpRaw = entry.Mul(one.Sub(tp))
			tpNotional = notional.Mul(one.Sub(tp))
		} else {
			tpRaw = entry.Mul(one.Add(tp))
			tpNotional = notional.Mul(one.Add(tp))
		}
		tpF, _ := tpRaw.Float64()
		target := helper.SnapToTick(tpF, prec.TickSize, prec.PricePrecision)
		onProfitSide := target.GreaterThan(entry)
		if p.Side == models.SideShort {
			onProfitSide = target.IsPositive() && target.LessThan(entry)
		}
		if onProfitSide {
			m.TakeProfitPrice = target.InexactFloat64()
			m.NetProfitAtTarget = notional.Mul(tp).Sub(entryFee).Sub(tpNotional.Mul(maker)).InexactFloat64()
		}
	}

	return m
}
