package service

import (
	"context"
	"strings"

	"funding_bot/internal/models"
)

// GetFundingSnapshot - premiumIndex по всем символам котируемого актива.
func (c *Client) GetFundingSnapshot(ctx context.Context) ([]models.FundingEntry, error) {
	const op = "GetFundingSnapshot"
	if err := c.wait(ctx, op); err != nil {
		return nil, err
	}
	res, err := c.api.NewPremiumIndexService().Do(ctx)
	if err != nil {
		return nil, normalize(op, err)
	}

	out := make([]models.FundingEntry, 0, len(res))
	for _, p := range res {
		if p == nil || (c.quote != "" && !strings.HasSuffix(p.Symbol, c.quote)) {
			continue
		}
		out = append(out, models.FundingEntry{
			Symbol:          p.Symbol,
			FundingRate:     parseFloat(p.LastFundingRate),
			MarkPrice:       parseFloat(p.MarkPrice),
			NextFundingTime: msTime(p.NextFundingTime),
		})
	}
	return out, nil
}
