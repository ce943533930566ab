package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"funding_bot/internal/exchange"
	bootstrap "funding_bot/internal/modules/bootstrap/service"
	healthsvc "funding_bot/internal/modules/health/service"
	"funding_bot/internal/runner"
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			func(ex exchange.Client) *bootstrap.Instruments { return bootstrap.NewInstruments(ex) },
			func(i *bootstrap.Instruments) runner.Instruments { return i },
			bootstrap.NewWarmuper,
		),
		fx.Invoke(func(lc fx.Lifecycle, wu *bootstrap.Warmuper, hs *healthsvc.State, ctx context.Context, log *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						n, err := wu.Warmup(ctx)
						if err != nil {
							// раннер повторит загрузку таблицы на следующем тике
							log.Warn("[BOOT] warmup error", zap.Error(err))
							return
						}
						hs.SetReady(true)
						log.Info("[BOOT] warmup done", zap.Int("symbols", n))
					}()
					return nil
				},
			})
		}),
	)
}
