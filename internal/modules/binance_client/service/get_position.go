package service

import (
	"context"

	"funding_bot/internal/models"
)

// GetPosition - one-way режим: одна запись на символ. Нет записи - позиция нулевая.
func (c *Client) GetPosition(ctx context.Context, symbol string) (models.PositionInfo, error) {
	const op = "GetPosition"
	if err := c.wait(ctx, op); err != nil {
		return models.PositionInfo{}, err
	}
	res, err := c.api.NewGetPositionRiskService().Symbol(symbol).Do(ctx)
	if err != nil {
		return models.PositionInfo{}, normalize(op, err)
	}

	info := models.PositionInfo{Symbol: symbol}
	for _, p := range res {
		if p == nil || p.Symbol != symbol {
			continue
		}
		info.Amount += parseFloat(p.PositionAmt)
		info.UnrealizedPnl += parseFloat(p.UnRealizedProfit)
		if mp := parseFloat(p.MarkPrice); mp > 0 {
			info.MarkPrice = mp
		}
	}
	return info, nil
}
