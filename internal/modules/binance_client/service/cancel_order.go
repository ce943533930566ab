package service

import (
	"context"
	"fmt"
	"strconv"

	"funding_bot/internal/exchange"
)

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	const op = "CancelOrder"
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		// такого ордера у биржи быть не может
		return &exchange.Error{Kind: exchange.KindOrderNotFound, Op: op, Msg: fmt.Sprintf("bad order id %q", orderID), Err: err}
	}
	if err := c.wait(ctx, op); err != nil {
		return err
	}
	if _, err := c.api.NewCancelOrderService().Symbol(symbol).OrderID(id).Do(ctx); err != nil {
		return normalize(op, err)
	}
	return nil
}
