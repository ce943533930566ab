package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	binance_client "funding_bot/internal/modules/binance_client"
	binance_websocket "funding_bot/internal/modules/binance_websocket"
	"funding_bot/internal/modules/bootstrap"
	"funding_bot/internal/modules/config"
	"funding_bot/internal/modules/health"
	"funding_bot/internal/modules/postgres"
	"funding_bot/internal/notify"
	"funding_bot/internal/runner"
	"funding_bot/pkg/logger"
	"funding_bot/pkg/tracing"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Запустить бота",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return errors.Wrap(err, "load config")
			}

			logger.SetServiceName(serviceName)
			log, err := newLogger(cfg)
			if err != nil {
				return errors.Wrap(err, "init logger")
			}
			defer func() { _ = log.Sync() }()

			log.Info("[BOOT] старт", zap.String("version", version))
			log.Info("[BOOT] конфиг\n" + cfg.Dump())

			if cfg.Tracing.Enabled {
				tracing.SetServiceName(serviceName)
				_, closeTracer, err := tracing.InitTracer(tracing.Config{
					Host: cfg.Tracing.Host,
					Port: cfg.Tracing.Port,
				})
				if err != nil {
					return errors.Wrap(err, "init tracer")
				}
				defer closeTracer()
			}

			app := fx.New(
				fx.WithLogger(func() fxevent.Logger {
					return &fxevent.ZapLogger{Logger: log.Named("fx")}
				}),
				fx.Provide(
					func() context.Context {
						return context.Background()
					},
				),
				fx.Supply(cfg, log),
				health.Module(),
				binance_websocket.Module(),
				binance_client.Module(),
				postgres.Module(),
				notify.Module(),
				runner.Module(),
				bootstrap.Module(),
			)
			if err := app.Err(); err != nil {
				return errors.Wrap(err, "build app")
			}
			app.Run()
			return nil
		},
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}
