package strategy

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"funding_bot/internal/models"
)

// Rank фильтрует снапшот, считает метрики и возвращает шорт-лист.
// Сначала отбор по доходности (ставка по возрастанию, top-N), потом внутри
// отобранного порядок по близости фандинга. Индекс 0 - кандидат этого тика.
func Rank(snapshot []models.FundingEntry, table models.PrecisionTable, p Params, now time.Time) []models.Candidate {
	if len(snapshot) == 0 || p.TopN <= 0 {
		return nil
	}

	nowMs := now.UnixMilli()
	bySymbol := make(map[string]int, len(snapshot))
	out := make([]models.Candidate, 0, len(snapshot))

	for _, e := range snapshot {
		if p.QuoteAsset != "" && !strings.HasSuffix(e.Symbol, p.QuoteAsset) {
			continue
		}
		if !(e.FundingRate < p.FundingRateThreshold) {
			continue
		}
		prec, ok := table.Lookup(e.Symbol)
		if !ok {
			continue
		}
		m := ComputeMetrics(e.MarkPrice, prec, e.FundingRate, p)
		if m == nil {
			continue
		}

		c := models.Candidate{
			Symbol:          e.Symbol,
			FundingRate:     e.FundingRate,
			NextFundingTime: e.NextFundingTime,
			MarkPrice:       e.MarkPrice,
			Metrics:         m,
			MsToFunding:     e.NextFundingTime.UnixMilli() - nowMs,
		}

		// дубль символа из разных источников: оставляем самую отрицательную ставку
		if i, seen := bySymbol[e.Symbol]; seen {
			if c.FundingRate < out[i].FundingRate {
				out[i] = c
			}
			continue
		}
		bySymbol[e.Symbol] = len(out)
		out = append(out, c)
	}

	slices.SortStableFunc(out, func(a, b models.Candidate) int {
		return cmp.Compare(a.FundingRate, b.FundingRate)
	})
	if len(out) > p.TopN {
		out = out[:p.TopN]
	}

	slices.SortStableFunc(out, func(a, b models.Candidate) int {
		if c := cmp.Compare(a.MsToFunding, b.MsToFunding); c != 0 {
			return c
		}
		return cmp.Compare(a.FundingRate, b.FundingRate)
	})
	return out
}
