package service

import (
	"context"

	"github.com/adshao/go-binance/v2/futures"

	"funding_bot/internal/models"
)

// GetInstrumentPrecisionTable - только TRADING + PERPETUAL в нужном котируемом активе.
func (c *Client) GetInstrumentPrecisionTable(ctx context.Context) (models.PrecisionTable, error) {
	const op = "GetInstrumentPrecisionTable"
	if err := c.wait(ctx, op); err != nil {
		return nil, err
	}
	info, err := c.api.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, normalize(op, err)
	}

	table := make(models.PrecisionTable, len(info.Symbols))
	for i := range info.Symbols {
		s := &info.Symbols[i]
		if s.Status != "TRADING" || s.ContractType != futures.ContractTypePerpetual {
			continue
		}
		if c.quote != "" && s.QuoteAsset != c.quote {
			continue
		}
		p := models.InstrumentPrecision{
			Symbol:            s.Symbol,
			PricePrecision:    int32(s.PricePrecision),
			QuantityPrecision: int32(s.QuantityPrecision),
		}
		if lot := s.LotSizeFilter(); lot != nil {
			p.MinQty = parseFloat(lot.MinQuantity)
		}
		if pf := s.PriceFilter(); pf != nil {
			p.TickSize = parseFloat(pf.TickSize)
		}
		table[s.Symbol] = p
	}

	c.mu.Lock()
	c.prec = table
	c.mu.Unlock()
	c.log.Info("[BINANCE] таблица точностей загружена")
	return table, nil
}
