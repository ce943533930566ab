package strategy

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funding_bot/internal/models"
)

var now = time.Date(2026, 1, 1, 7, 59, 50, 0, time.UTC)

func entry(sym string, rate float64, msToFunding int64) models.FundingEntry {
	return models.FundingEntry{
		Symbol:          sym,
		FundingRate:     rate,
		MarkPrice:       100,
		NextFundingTime: now.Add(time.Duration(msToFunding) * time.Millisecond),
	}
}

func table(symbols ...string) models.PrecisionTable {
	t := models.PrecisionTable{}
	for _, s := range symbols {
		t[s] = models.InstrumentPrecision{Symbol: s, PricePrecision: 2, QuantityPrecision: 3, MinQty: 0.001, TickSize: 0.01}
	}
	return t
}

func symbols(cs []models.Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Symbol)
	}
	return out
}

func TestRank_ProfitabilityBeforeUrgency(t *testing.T) {
	p := longParams()
	p.TopN = 1

	got := Rank([]models.FundingEntry{
		entry("AUSDT", -0.01, 5000),
		entry("BUSDT", -0.02, 9000),
	}, table("AUSDT", "BUSDT"), p, now)

	assert.Equal(t, []string{"BUSDT"}, symbols(got))
}

func TestRank_SecondarySortByTime(t *testing.T) {
	p := longParams()
	p.TopN = 3

	got := Rank([]models.FundingEntry{
		entry("AUSDT", -0.010, 9000),
		entry("BUSDT", -0.020, 3000),
		entry("CUSDT", -0.030, 9000),
		entry("DUSDT", -0.005, 1000), // вне top-3 по ставке
	}, table("AUSDT", "BUSDT", "CUSDT", "DUSDT"), p, now)

	// B ближе всех; A и C одновременно, C отрицательнее
	assert.Equal(t, []string{"BUSDT", "CUSDT", "AUSDT"}, symbols(got))
	assert.Equal(t, int64(3000), got[0].MsToFunding)
}

func TestRank_Filters(t *testing.T) {
	p := longParams()

	got := Rank([]models.FundingEntry{
		entry("AUSDT", -0.002, 1000),
		entry("BUSDC", -0.005, 1000), // чужой quote
		entry("CUSDT", -0.001, 1000), // не строго ниже порога
		entry("DUSDT", -0.003, 1000), // нет precision
		entry("EUSDT", 0.002, 1000),  // положительная ставка
	}, table("AUSDT", "BUSDC", "CUSDT", "EUSDT"), p, now)

	assert.Equal(t, []string{"AUSDT"}, symbols(got))
	require.NotNil(t, got[0].Metrics)
}

func TestRank_DropsUntradableMetrics(t *testing.T) {
	p := longParams()
	tb := table("AUSDT", "BUSDT")
	b := tb["BUSDT"]
	b.MinQty = 1000
	tb["BUSDT"] = b

	got := Rank([]models.FundingEntry{
		entry("AUSDT", -0.002, 1000),
		entry("BUSDT", -0.009, 1000),
	}, tb, p, now)

	assert.Equal(t, []string{"AUSDT"}, symbols(got))
}

func TestRank_DeduplicateKeepsMostNegative(t *testing.T) {
	p := longParams()

	got := Rank([]models.FundingEntry{
		entry("AUSDT", -0.002, 1000),
		entry("BUSDT", -0.003, 2000),
		entry("AUSDT", -0.004, 1000),
		entry("AUSDT", -0.0015, 1000),
	}, table("AUSDT", "BUSDT"), p, now)

	require.Len(t, got, 2)
	assert.Equal(t, "AUSDT", got[0].Symbol)
	assert.Equal(t, -0.004, got[0].FundingRate)
}

func TestRank_EmptySnapshot(t *testing.T) {
	assert.Empty(t, Rank(nil, table("AUSDT"), longParams(), now))
}

func TestRank_Properties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	syms := make([]string, 30)
	for i := range syms {
		syms[i] = fmt.Sprintf("S%02dUSDT", i)
	}
	tb := table(syms...)

	for round := 0; round < 200; round++ {
		p := longParams()
		p.TopN = 1 + rnd.Intn(8)

		n := rnd.Intn(40)
		snap := make([]models.FundingEntry, 0, n)
		for i := 0; i < n; i++ {
			snap = append(snap, entry(
				syms[rnd.Intn(len(syms))],
				-rnd.Float64()*0.02,
				int64(rnd.Intn(60000)-30000),
			))
		}

		got := Rank(snap, tb, p, now)
		require.LessOrEqual(t, len(got), p.TopN)

		seen := map[string]bool{}
		for i, c := range got {
			require.False(t, seen[c.Symbol], "duplicate %s", c.Symbol)
			seen[c.Symbol] = true
			if i > 0 {
				require.LessOrEqual(t, got[i-1].MsToFunding, c.MsToFunding)
			}
		}

		// выбранные кандидаты - самые отрицательные ставки среди прошедших фильтр
		best := map[string]float64{}
		for _, e := range snap {
			if e.FundingRate >= p.FundingRateThreshold {
				continue
			}
			if r, ok := best[e.Symbol]; !ok || e.FundingRate < r {
				best[e.Symbol] = e.FundingRate
			}
		}
		worstPicked := math.Inf(-1)
		for _, c := range got {
			require.Equal(t, best[c.Symbol], c.FundingRate)
			worstPicked = math.Max(worstPicked, c.FundingRate)
		}
		if len(got) == p.TopN {
			for sym, r := range best {
				if !seen[sym] {
					require.GreaterOrEqual(t, r, worstPicked)
				}
			}
		}
	}
}
