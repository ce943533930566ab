package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"funding_bot/internal/exchange"
	"funding_bot/internal/helper"
	"funding_bot/internal/models"
	"funding_bot/internal/modules/config"
	healthsvc "funding_bot/internal/modules/health/service"
	"funding_bot/internal/runner/sessions"
	"funding_bot/internal/strategy"
	"funding_bot/pkg/metrics"
)

// Instruments отдаёт таблицу точностей, загруженную на старте.
type Instruments interface {
	Table(ctx context.Context) (models.PrecisionTable, error)
}

// Health - куда отмечать живой тик.
type Health interface {
	ObserveTick(t healthsvc.TickInfo)
}

type Deps struct {
	Strategy    config.Strategy
	Exchange    exchange.Client
	Instruments Instruments
	Session     *sessions.Session
	Notifier    sessions.Notifier
	Health      Health
	Logger      *zap.Logger
	Now         func() time.Time
}

// Runner - цикл опроса: снимок ставок -> ранжирование -> вход или сверка.
type Runner struct {
	cfg  config.Strategy
	ex   exchange.Client
	inst Instruments
	s    *sessions.Session
	n    sessions.Notifier
	hs   Health
	log  *zap.Logger
	now  func() time.Time

	mu      sync.Mutex
	lastSim string // symbol@fundingTime последней симуляции
	last    []models.Candidate

	cancel context.CancelFunc
	done   chan struct{}
}

func New(d Deps) *Runner {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Runner{
		cfg:  d.Strategy,
		ex:   d.Exchange,
		inst: d.Instruments,
		s:    d.Session,
		n:    d.Notifier,
		hs:   d.Health,
		log:  d.Logger.Named("runner"),
		now:  d.Now,
	}
}

// NewRunner - fx-провайдер.
func NewRunner(cfg *config.Config, ex exchange.Client, inst Instruments, s *sessions.Session, n sessions.Notifier, hs *healthsvc.State, log *zap.Logger) *Runner {
	return New(Deps{
		Strategy:    cfg.Strategy,
		Exchange:    ex,
		Instruments: inst,
		Session:     s,
		Notifier:    n,
		Health:      hs,
		Logger:      log,
	})
}

// Start запускает цикл в фоне. Повторный вызов ничего не делает.
func (r *Runner) Start(parent context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		r.Run(ctx)
	}()
}

// Stop останавливает цикл и ждёт текущий тик.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run - тик сразу, потом раз в PollInterval, пока жив ctx.
func (r *Runner) Run(ctx context.Context) {
	r.log.Info("[RUNNER] ▶️ старт",
		zap.String("side", string(r.cfg.Side)),
		zap.String("entry_policy", string(r.cfg.EntryPolicy)),
		zap.String("exit_policy", string(r.cfg.ExitPolicy)),
		zap.Duration("poll", r.cfg.PollInterval),
		zap.Bool("execute_trades", r.cfg.ExecuteTrades),
	)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := r.Tick(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("[TICK] ошибка", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			r.log.Info("[RUNNER] ⏹ остановлен")
			return
		case <-ticker.C:
		}
	}
}

// Tick - один проход опроса. Ошибки снимка и таблицы точностей означают пропуск тика.
func (r *Runner) Tick(ctx context.Context) error {
	now := r.now()

	snap, err := r.ex.GetFundingSnapshot(ctx)
	if err != nil {
		metrics.Ticks.WithLabelValues("error").Inc()
		return fmt.Errorf("Tick: funding snapshot: %w", err)
	}
	if len(snap) == 0 {
		metrics.Ticks.WithLabelValues("empty").Inc()
		r.log.Warn("[TICK] пустой снимок ставок, пропуск")
		return nil
	}

	table, err := r.inst.Table(ctx)
	if err != nil {
		metrics.Ticks.WithLabelValues("error").Inc()
		return fmt.Errorf("Tick: precision table: %w", err)
	}

	cands := strategy.Rank(snap, table, r.cfg.Params(), now)
	metrics.Candidates.Set(float64(len(cands)))
	r.mu.Lock()
	r.last = cands
	r.mu.Unlock()
	r.log.Debug("[TICK] ранжирование", zap.Int("snapshot", len(snap)), zap.Int("candidates", len(cands)))

	if r.hs != nil {
		info := healthsvc.TickInfo{At: now, Candidates: len(cands)}
		if len(cands) > 0 {
			info.Head = cands[0].Symbol
			info.HeadRate = cands[0].FundingRate
		}
		r.hs.ObserveTick(info)
	}

	metrics.Ticks.WithLabelValues("ok").Inc()

	if r.s.Occupied() {
		return r.s.Reconcile(ctx)
	}
	if len(cands) == 0 {
		return nil
	}
	return r.schedule(ctx, cands[0])
}

// schedule - решение о входе по голове списка.
func (r *Runner) schedule(ctx context.Context, head models.Candidate) error {
	if !strategy.InEntryWindow(r.cfg.EntryPolicy, head.MsToFunding, r.cfg.EntryWindow) {
		r.log.Debug("[ENTRY] вне окна",
			zap.String("symbol", head.Symbol),
			zap.String("to_funding", helper.FormatCountdown(head.MsToFunding)),
		)
		return nil
	}
	if r.s.Busy() {
		r.log.Debug("[ENTRY] лок занят", zap.String("symbol", head.Symbol))
		return nil
	}

	if !r.cfg.ExecuteTrades {
		r.simulate(head)
		return nil
	}

	err := r.s.Open(ctx, head)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sessions.ErrBusy), errors.Is(err, sessions.ErrOccupied):
		r.log.Debug("[ENTRY] вход пропущен", zap.String("symbol", head.Symbol), zap.Error(err))
		return nil
	default:
		return fmt.Errorf("Tick: open %s: %w", head.Symbol, err)
	}
}

// simulate - режим без торговли: сообщаем о входе один раз на окно фандинга.
func (r *Runner) simulate(c models.Candidate) {
	key := c.Symbol + "@" + c.NextFundingTime.UTC().Format(time.RFC3339)
	r.mu.Lock()
	if r.lastSim == key {
		r.mu.Unlock()
		return
	}
	r.lastSim = key
	r.mu.Unlock()

	m := c.Metrics
	metrics.Entries.WithLabelValues("simulated").Inc()
	r.log.Info("[SIM] вход (без торговли)",
		zap.String("symbol", c.Symbol),
		zap.Float64("rate", c.FundingRate),
		zap.Float64("qty", m.Quantity),
		zap.Float64("stop", m.StopPrice),
		zap.Float64("funding_gain", m.FundingGain),
		zap.Float64("net_loss_at_stop", m.NetLossAtStop),
	)
	if r.n != nil {
		r.n.Sendf("🧪 SIM %s %s: ставка %.4f%%, qty=%g @ %g, SL=%g, фандинг ≈ %.4f$, риск ≈ %.4f$ (до фандинга %s)",
			r.cfg.Side, c.Symbol, c.FundingRate*100, m.Quantity, c.MarkPrice, m.StopPrice,
			m.FundingGain, m.NetLossAtStop, helper.FormatCountdown(c.MsToFunding))
	}
}

// Candidates - шорт-лист последнего тика.
func (r *Runner) Candidates() []models.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Candidate, len(r.last))
	copy(out, r.last)
	return out
}
