package service

import "context"

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	const op = "SetLeverage"
	if err := c.wait(ctx, op); err != nil {
		return err
	}
	if _, err := c.api.NewChangeLeverageService().Symbol(symbol).Leverage(leverage).Do(ctx); err != nil {
		return normalize(op, err)
	}
	return nil
}
