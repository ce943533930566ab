package service

import (
	"context"
	"strconv"
	"time"

	"funding_bot/internal/models"
)

func (c *Client) GetRecentFills(ctx context.Context, symbol string, since time.Time, limit int) ([]models.Fill, error) {
	const op = "GetRecentFills"
	if err := c.wait(ctx, op); err != nil {
		return nil, err
	}
	svc := c.api.NewListAccountTradeService().Symbol(symbol).StartTime(since.UnixMilli())
	if limit > 0 {
		svc = svc.Limit(limit)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return nil, normalize(op, err)
	}

	out := make([]models.Fill, 0, len(res))
	for _, t := range res {
		if t == nil {
			continue
		}
		out = append(out, models.Fill{
			OrderID:     strconv.FormatInt(t.OrderID, 10),
			Side:        fromSide(t.Side),
			Price:       parseFloat(t.Price),
			Quantity:    parseFloat(t.Quantity),
			RealizedPnl: parseFloat(t.RealizedPnl),
			Time:        msTime(t.Time),
		})
	}
	return out, nil
}
