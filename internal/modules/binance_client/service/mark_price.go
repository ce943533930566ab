package service

import (
	"context"
	"fmt"

	"funding_bot/internal/exchange"
)

// MarkPrice: свежая цена из websocket, иначе premiumIndex.
func (c *Client) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	const op = "MarkPrice"
	if c.marks != nil {
		if px, ok := c.marks.Price(symbol, markMaxAge, c.now()); ok {
			return px, nil
		}
	}
	if err := c.wait(ctx, op); err != nil {
		return 0, err
	}
	res, err := c.api.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, normalize(op, err)
	}
	for _, p := range res {
		if p != nil && p.Symbol == symbol {
			if px := parseFloat(p.MarkPrice); px > 0 {
				return px, nil
			}
		}
	}
	return 0, &exchange.Error{Kind: exchange.KindTransient, Op: op, Msg: fmt.Sprintf("no mark price for %s", symbol)}
}
