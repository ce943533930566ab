package sessions

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"funding_bot/internal/exchange"
	"funding_bot/internal/models"
	"funding_bot/internal/modules/config"
	"funding_bot/pkg/metrics"
)

var (
	// ErrBusy - идёт другая последовательность открытия/закрытия.
	ErrBusy = errors.New("order placement in progress")
	// ErrOccupied - позиция уже открыта.
	ErrOccupied = errors.New("position slot occupied")
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
	// Critical - ситуация, которую бот сам не разрулит.
	Critical(msg string)
}

// Scheduler откладывает вызов. В проде time.AfterFunc, в тестах ручной.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) models.CancelHandle
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) models.CancelHandle {
	return time.AfterFunc(d, f)
}

type Deps struct {
	Strategy  config.Strategy
	Exchange  exchange.Client
	History   *History
	Notifier  Notifier
	Logger    *zap.Logger
	Scheduler Scheduler
	Now       func() time.Time
}

// Session владеет единственным слотом позиции и локом на размещение ордеров.
// Все изменения жизненного цикла идут под lock; mu только для чтения слота из других горутин.
type Session struct {
	ctx context.Context

	cfg     config.Strategy
	ex      exchange.Client
	history *History
	n       Notifier
	log     *zap.Logger
	sched   Scheduler
	now     func() time.Time

	lock atomic.Bool // OrderPlacementLock

	mu    sync.Mutex
	pos   *models.Position
	state models.PositionState
}

func New(ctx context.Context, d Deps) *Session {
	if d.Scheduler == nil {
		d.Scheduler = timerScheduler{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.History == nil {
		d.History = NewHistory(nil)
	}
	return &Session{
		ctx:     ctx,
		cfg:     d.Strategy,
		ex:      d.Exchange,
		history: d.History,
		n:       d.Notifier,
		log:     d.Logger.Named("session"),
		sched:   d.Scheduler,
		now:     d.Now,
		state:   models.StateEmpty,
	}
}

// NewSession - fx-провайдер.
func NewSession(ctx context.Context, cfg *config.Config, ex exchange.Client, h *History, n Notifier, log *zap.Logger) *Session {
	return New(ctx, Deps{
		Strategy: cfg.Strategy,
		Exchange: ex,
		History:  h,
		Notifier: n,
		Logger:   log,
	})
}

func (s *Session) tryLock() bool { return s.lock.CompareAndSwap(false, true) }
func (s *Session) unlock()       { s.lock.Store(false) }

// Busy - держится ли сейчас лок на размещение.
func (s *Session) Busy() bool { return s.lock.Load() }

// Occupied - есть ли живая позиция.
func (s *Session) Occupied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos != nil
}

func (s *Session) History() *History { return s.history }

func (s *Session) current() *models.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *Session) setState(st models.PositionState) {
	s.mu.Lock()
	s.state = st
	if s.pos != nil {
		s.pos.State = st
	}
	s.mu.Unlock()
}

// commit кладёт позицию в слот.
func (s *Session) commit(p *models.Position) {
	s.mu.Lock()
	s.pos = p
	s.state = p.State
	s.mu.Unlock()
	metrics.PositionOpen.Set(1)
}

// clear освобождает слот и отменяет отложенную проверку, если она ещё висит.
func (s *Session) clear() {
	s.mu.Lock()
	if s.pos != nil && s.pos.PendingCheck != nil {
		s.pos.PendingCheck.Stop()
		s.pos.PendingCheck = nil
	}
	s.pos = nil
	s.state = models.StateEmpty
	s.mu.Unlock()
	metrics.PositionOpen.Set(0)
}

func (s *Session) Status() models.SlotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.SlotStatus{State: s.state, Busy: s.lock.Load()}
	if p := s.pos; p != nil {
		st.Symbol = p.Symbol
		st.Side = p.Side
		st.EntryPrice = p.EntryPrice
		st.Quantity = p.Quantity
		st.EntryTime = p.EntryTime
		st.StopOrderID = p.StopOrderID
		st.CheckAt = p.CheckAt
		st.CheckCompleted = p.CheckCompleted
		st.Unprotected = p.Unprotected
	}
	return st
}

// Shutdown отменяет отложенную проверку. Стоп на бирже остаётся защитой.
func (s *Session) Shutdown() {
	s.mu.Lock()
	p := s.pos
	if p != nil && p.PendingCheck != nil {
		p.PendingCheck.Stop()
		p.PendingCheck = nil
	}
	s.mu.Unlock()

	if p != nil {
		s.log.Warn("[STOP] бот остановлен с открытой позицией",
			zap.String("symbol", p.Symbol),
			zap.Float64("qty", p.Quantity),
			zap.String("stop_order_id", p.StopOrderID),
			zap.Bool("unprotected", p.Unprotected),
		)
		s.notify("⚠️ Бот остановлен, позиция %s %s qty=%g остаётся открытой", p.Side, p.Symbol, p.Quantity)
	}
}

func (s *Session) notify(format string, args ...any) {
	if s.n == nil {
		return
	}
	s.n.Sendf(format, args...)
}

// fatalManual - самый тяжёлый класс ошибки: автоматического выхода нет.
func (s *Session) fatalManual(msg string, fields ...zap.Field) {
	fields = append(fields, zap.String("severity", "FATAL_MANUAL"))
	s.log.Error(msg, fields...)
	metrics.FatalManual.Inc()
	if s.n != nil {
		s.n.Critical("🆘 " + msg)
	}
}
