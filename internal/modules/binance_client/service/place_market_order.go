package service

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2/futures"

	"funding_bot/internal/helper"
	"funding_bot/internal/models"
)

func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side models.OrderSide, qty float64, reduceOnly bool) (models.OrderResult, error) {
	const op = "PlaceMarketOrder"
	p, err := c.precision(ctx, symbol)
	if err != nil {
		return models.OrderResult{}, normalize(op, err)
	}
	if err := c.wait(ctx, op); err != nil {
		return models.OrderResult{}, err
	}

	svc := c.api.NewCreateOrderService().
		Symbol(symbol).
		Side(orderSide(side)).
		Type(futures.OrderTypeMarket).
		Quantity(helper.FormatQty(qty, p.QuantityPrecision)).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT)
	if reduceOnly {
		svc = svc.ReduceOnly(true)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return models.OrderResult{}, normalize(op, err)
	}

	return models.OrderResult{
		OrderID:   strconv.FormatInt(res.OrderID, 10),
		FilledQty: parseFloat(res.ExecutedQuantity),
		AvgPrice:  parseFloat(res.AvgPrice),
		FillTime:  msTime(res.UpdateTime),
	}, nil
}
