package binance_websocket

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"funding_bot/internal/modules/binance_websocket/service"
	"funding_bot/internal/modules/config"
	healthsvc "funding_bot/internal/modules/health/service"
)

// Module поднимает поток mark-цен. При mark_stream=false кэш остаётся пустым
// и клиент ходит за ценой в REST.
func Module() fx.Option {
	return fx.Module("binance_websocket",
		fx.Provide(
			service.NewMarkCache,
			func(cfg *config.Config, cache *service.MarkCache, hs *healthsvc.State, log *zap.Logger) *service.Stream {
				return service.NewStream(cfg, cache, hs, log)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, s *service.Stream, ctx context.Context) {
			if !cfg.Binance.MarkStream {
				return
			}
			runCtx, cancel := context.WithCancel(ctx)
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go s.Run(runCtx)
					return nil
				},
				OnStop: func(_ context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
