package pg

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"

	"funding_bot/internal/models"
	"funding_bot/pkg/db"
)

const createTradesTable = `
CREATE TABLE IF NOT EXISTS funding_trades (
    id           TEXT PRIMARY KEY,
    run_id       TEXT        NOT NULL,
    symbol       TEXT        NOT NULL,
    side         TEXT        NOT NULL,
    entry_price  NUMERIC     NOT NULL,
    exit_price   NUMERIC     NOT NULL,
    quantity     NUMERIC     NOT NULL,
    realized_pnl NUMERIC     NOT NULL,
    reason       TEXT        NOT NULL,
    entry_time   TIMESTAMPTZ NOT NULL,
    closed_at    TIMESTAMPTZ NOT NULL,
    payload      JSONB       NOT NULL
)`

const insertTrade = `
INSERT INTO funding_trades
    (id, run_id, symbol, side, entry_price, exit_price, quantity, realized_pnl, reason, entry_time, closed_at, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO NOTHING`

// TradeJournal пишет историю сделок в postgres. Бот её обратно не читает.
type TradeJournal struct {
	db    db.TxManager
	runID string
}

func NewTradeJournal(tx db.TxManager, runID string) *TradeJournal {
	return &TradeJournal{db: tx, runID: runID}
}

// EnsureSchema создаёт таблицу, если её нет.
func (j *TradeJournal) EnsureSchema(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.EnsureSchema: %w", err)
		}
	}()
	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, createTradesTable)
		return err
	})
}

// Save - одна сделка, повтор с тем же id игнорируется.
func (j *TradeJournal) Save(ctx context.Context, rec models.TradeRecord) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Save: %w", err)
		}
	}()

	var payload []byte
	payload, err = sonic.Marshal(rec)
	if err != nil {
		return err
	}

	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertTrade,
			rec.ID,
			j.runID,
			rec.Symbol,
			string(rec.Side),
			rec.EntryPrice,
			rec.ExitPrice,
			rec.Quantity,
			rec.RealizedPnl,
			string(rec.Reason),
			rec.EntryTime,
			rec.ClosedAt,
			payload,
		)
		return err
	})
}
