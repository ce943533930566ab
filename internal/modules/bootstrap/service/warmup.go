package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"funding_bot/internal/exchange"
	"funding_bot/internal/modules/config"
	"funding_bot/internal/runner/sessions"
)

// Warmuper - старт: таблица точностей + проверка verify_symbols.
type Warmuper struct {
	ex   exchange.Client
	inst *Instruments
	n    sessions.Notifier
	cfg  config.Strategy
	log  *zap.Logger

	// ограничитель параллелизма, чтобы не словить rate limit
	sem chan struct{}
}

func NewWarmuper(ex exchange.Client, inst *Instruments, n sessions.Notifier, cfg *config.Config, log *zap.Logger) *Warmuper {
	return &Warmuper{
		ex:   ex,
		inst: inst,
		n:    n,
		cfg:  cfg.Strategy,
		log:  log.Named("bootstrap"),
		sem:  make(chan struct{}, 8),
	}
}

// Warmup грузит таблицу и прогоняет проверку символов. Возвращает число символов в таблице.
func (w *Warmuper) Warmup(ctx context.Context) (int, error) {
	table, err := w.inst.Table(ctx)
	if err != nil {
		return 0, fmt.Errorf("warmup: %w", err)
	}
	w.log.Info("[BOOT] таблица точностей", zap.Int("symbols", len(table)))

	failed := w.verify(ctx, w.cfg.VerifySymbols)
	for _, sym := range failed {
		w.inst.Drop(sym)
	}
	if len(failed) > 0 && w.n != nil {
		w.n.Sendf("⚠️ Символы не прошли проверку и исключены: %v", failed)
	}

	table, _ = w.inst.Table(ctx)
	return len(table), nil
}

// verify: mark-цена и (в боевом режиме) плечо по каждому символу.
func (w *Warmuper) verify(ctx context.Context, symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
	)
	for _, sym := range symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.sem <- struct{}{}
			defer func() { <-w.sem }()

			if err := w.probe(ctx, sym); err != nil {
				w.log.Warn("[BOOT] символ не прошёл проверку", zap.String("symbol", sym), zap.Error(err))
				mu.Lock()
				failed = append(failed, sym)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return failed
}

func (w *Warmuper) probe(ctx context.Context, sym string) error {
	table, err := w.inst.Table(ctx)
	if err != nil {
		return err
	}
	if _, ok := table.Lookup(sym); !ok {
		return fmt.Errorf("%s: not a tradable %s perpetual", sym, w.cfg.QuoteAsset)
	}
	px, err := w.ex.MarkPrice(ctx, sym)
	if err != nil {
		return fmt.Errorf("%s: mark price: %w", sym, err)
	}
	if px <= 0 {
		return fmt.Errorf("%s: bad mark price %v", sym, px)
	}
	if !w.cfg.ExecuteTrades {
		return nil
	}
	if err := w.ex.SetLeverage(ctx, sym, w.cfg.Leverage); err != nil {
		return fmt.Errorf("%s: set leverage: %w", sym, err)
	}
	return nil
}
