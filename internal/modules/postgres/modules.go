package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"funding_bot/internal/modules/config"
	"funding_bot/internal/runner/sessions"
	"funding_bot/internal/runner/sessions/pg"
	"funding_bot/pkg/db"
)

// NewJournal: без db_dsn журнала нет, история живёт только в памяти.
func NewJournal(ctx context.Context, lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (sessions.Journal, error) {
	if cfg.DB == "" {
		log.Info("[DB] db_dsn пуст, журнал сделок отключён")
		return nil, nil
	}

	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN:      cfg.DB,
		MaxConns: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	err = poolMaster.Ping(ctx)
	if err != nil {
		poolMaster.Close()
		return nil, err
	}

	tx := db.NewPgTxManager(poolMaster)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tx.Close()
			return nil
		},
	})

	runID := uuid.NewString()
	j := pg.NewTradeJournal(tx, runID)
	if err = j.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	log.Info("[DB] журнал сделок подключён", zap.String("run", runID))
	return j, nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(NewJournal),
	)
}
