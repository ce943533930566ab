package service

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2/futures"

	"funding_bot/internal/helper"
	"funding_bot/internal/models"
)

// PlaceStopOrder - STOP_MARKET reduce-only по mark-цене.
func (c *Client) PlaceStopOrder(ctx context.Context, symbol string, side models.OrderSide, qty, trigger float64) (models.OrderResult, error) {
	return c.placeTrigger(ctx, "PlaceStopOrder", futures.OrderTypeStopMarket, symbol, side, qty, trigger)
}

// PlaceTakeProfitOrder - TAKE_PROFIT_MARKET reduce-only по mark-цене.
func (c *Client) PlaceTakeProfitOrder(ctx context.Context, symbol string, side models.OrderSide, qty, trigger float64) (models.OrderResult, error) {
	return c.placeTrigger(ctx, "PlaceTakeProfitOrder", futures.OrderTypeTakeProfitMarket, symbol, side, qty, trigger)
}

func (c *Client) placeTrigger(ctx context.Context, op string, typ futures.OrderType, symbol string, side models.OrderSide, qty, trigger float64) (models.OrderResult, error) {
	p, err := c.precision(ctx, symbol)
	if err != nil {
		return models.OrderResult{}, normalize(op, err)
	}
	if err := c.wait(ctx, op); err != nil {
		return models.OrderResult{}, err
	}

	res, err := c.api.NewCreateOrderService().
		Symbol(symbol).
		Side(orderSide(side)).
		Type(typ).
		Quantity(helper.FormatQty(qty, p.QuantityPrecision)).
		StopPrice(helper.SnapToTick(trigger, p.TickSize, p.PricePrecision).StringFixed(p.PricePrecision)).
		WorkingType(futures.WorkingTypeMarkPrice).
		ReduceOnly(true).
		Do(ctx)
	if err != nil {
		return models.OrderResult{}, normalize(op, err)
	}
	return models.OrderResult{OrderID: strconv.FormatInt(res.OrderID, 10)}, nil
}
