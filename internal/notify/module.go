package notify

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"funding_bot/internal/modules/config"
	"funding_bot/internal/runner/sessions"
)

// New выбирает Telegram, если заданы токен и чат, иначе лог.
func New(cfg *config.Config, log *zap.Logger) (sessions.Notifier, error) {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		log.Info("[NOTIFY] Telegram не настроен, уведомления в лог")
		return NewStdout(log), nil
	}
	return NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(New),
		fx.Invoke(func(lc fx.Lifecycle, n sessions.Notifier, s *sessions.Session, ctx context.Context) {
			t, ok := n.(*Telegram)
			if !ok {
				return
			}
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					return t.Start(ctx, s)
				},
				OnStop: func(_ context.Context) error {
					t.Stop()
					return nil
				},
			})
		}),
	)
}
