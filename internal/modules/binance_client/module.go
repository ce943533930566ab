package binance_client

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"funding_bot/internal/exchange"
	"funding_bot/internal/modules/binance_client/service"
	wsservice "funding_bot/internal/modules/binance_websocket/service"
	"funding_bot/internal/modules/config"
)

// Module отдаёт Binance-адаптер как exchange.Client.
func Module() fx.Option {
	return fx.Module("binance_client",
		fx.Provide(
			func(cfg *config.Config, marks *wsservice.MarkCache, log *zap.Logger) *service.Client {
				return service.NewClient(cfg, marks, log)
			},
			func(c *service.Client) exchange.Client { return c },
		),
	)
}
