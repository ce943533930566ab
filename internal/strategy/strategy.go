package strategy

import "funding_bot/internal/models"

// Params - всё, что нужно расчёту и ранжированию. Собирается из config.Strategy.
type Params struct {
	Side       models.Side
	QuoteAsset string

	// берём только ставки строго ниже порога
	FundingRateThreshold   float64
	RequireNegativeFunding bool

	InvestmentUSD float64
	Leverage      int
	StopLossPct   float64
	TakeProfitPct float64 // 0 - тейк не считаем
	MakerFee      float64
	TakerFee      float64

	TopN int
}
