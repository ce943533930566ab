package runner

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"funding_bot/internal/runner/sessions"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			sessions.NewHistory, // *sessions.History
			sessions.NewSession, // *sessions.Session
			NewRunner,           // *Runner
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			r *Runner,
			s *sessions.Session,
			ctx context.Context,
			log *zap.Logger,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					r.Start(ctx)
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					err := r.Stop(stopCtx)
					s.Shutdown()
					if err != nil {
						log.Warn("[RUNNER] тик не завершился до остановки", zap.Error(err))
					}
					return nil
				},
			})
		}),
	)
}
