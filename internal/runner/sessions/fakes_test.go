package sessions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"funding_bot/internal/exchange"
	"funding_bot/internal/models"
	"funding_bot/internal/modules/config"
	"funding_bot/internal/strategy"
)

var (
	t0          = time.Date(2026, 1, 1, 7, 59, 52, 0, time.UTC)
	fundingTime = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
)

type marketCall struct {
	symbol     string
	side       models.OrderSide
	qty        float64
	reduceOnly bool
}

type triggerCall struct {
	symbol  string
	side    models.OrderSide
	qty     float64
	trigger float64
}

type fakeExchange struct {
	mu sync.Mutex

	leverageErr error
	marketErrs  []error // по одному на вызов PlaceMarketOrder, nil - успех
	fillPrice   float64 // AvgPrice ответа рыночного ордера
	stopErr     error
	tpErr       error
	cancelErr   error
	mark        float64
	markErr     error
	position    models.PositionInfo
	positionErr error
	fills       []models.Fill
	fillsErr    error

	calls       []string
	markets     []marketCall
	stops       []triggerCall
	takeProfits []triggerCall
	cancels     []string
	fillsSince  time.Time
}

func (f *fakeExchange) record(name string) {
	f.calls = append(f.calls, name)
}

func (f *fakeExchange) GetFundingSnapshot(context.Context) ([]models.FundingEntry, error) {
	return nil, nil
}

func (f *fakeExchange) GetInstrumentPrecisionTable(context.Context) (models.PrecisionTable, error) {
	return models.PrecisionTable{}, nil
}

func (f *fakeExchange) SetLeverage(_ context.Context, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetLeverage")
	return f.leverageErr
}

func (f *fakeExchange) PlaceMarketOrder(_ context.Context, symbol string, side models.OrderSide, qty float64, reduceOnly bool) (models.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PlaceMarketOrder")
	f.markets = append(f.markets, marketCall{symbol: symbol, side: side, qty: qty, reduceOnly: reduceOnly})
	if len(f.marketErrs) > 0 {
		err := f.marketErrs[0]
		f.marketErrs = f.marketErrs[1:]
		if err != nil {
			return models.OrderResult{}, err
		}
	}
	return models.OrderResult{
		OrderID:   fmt.Sprintf("m%d", len(f.markets)),
		FilledQty: qty,
		AvgPrice:  f.fillPrice,
		FillTime:  t0,
	}, nil
}

func (f *fakeExchange) PlaceStopOrder(_ context.Context, symbol string, side models.OrderSide, qty, trigger float64) (models.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PlaceStopOrder")
	f.stops = append(f.stops, triggerCall{symbol: symbol, side: side, qty: qty, trigger: trigger})
	if f.stopErr != nil {
		return models.OrderResult{}, f.stopErr
	}
	return models.OrderResult{OrderID: fmt.Sprintf("s%d", len(f.stops))}, nil
}

func (f *fakeExchange) PlaceTakeProfitOrder(_ context.Context, symbol string, side models.OrderSide, qty, trigger float64) (models.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PlaceTakeProfitOrder")
	f.takeProfits = append(f.takeProfits, triggerCall{symbol: symbol, side: side, qty: qty, trigger: trigger})
	if f.tpErr != nil {
		return models.OrderResult{}, f.tpErr
	}
	return models.OrderResult{OrderID: fmt.Sprintf("tp%d", len(f.takeProfits))}, nil
}

func (f *fakeExchange) CancelOrder(_ context.Context, _ string, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CancelOrder")
	f.cancels = append(f.cancels, orderID)
	return f.cancelErr
}

func (f *fakeExchange) GetPosition(_ context.Context, symbol string) (models.PositionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetPosition")
	p := f.position
	p.Symbol = symbol
	return p, f.positionErr
}

func (f *fakeExchange) GetRecentFills(_ context.Context, _ string, since time.Time, _ int) ([]models.Fill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetRecentFills")
	f.fillsSince = since
	return f.fills, f.fillsErr
}

func (f *fakeExchange) MarkPrice(context.Context, string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("MarkPrice")
	return f.mark, f.markErr
}

func (f *fakeExchange) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.markets = nil
	f.cancels = nil
}

func (f *fakeExchange) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type task struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *task) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

// manualScheduler ничего не запускает сам, тест дёргает fire.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*task
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) models.CancelHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &task{d: d, f: f}
	m.tasks = append(m.tasks, t)
	return t
}

func (m *manualScheduler) last(t *testing.T) *task {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.tasks)
	return m.tasks[len(m.tasks)-1]
}

func (m *manualScheduler) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (tk *task) fire() {
	tk.fired = true
	tk.f()
}

type recNotifier struct {
	mu       sync.Mutex
	msgs     []string
	critical []string
}

func (n *recNotifier) Send(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recNotifier) Sendf(format string, args ...any) { n.Send(fmt.Sprintf(format, args...)) }

func (n *recNotifier) Critical(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.critical = append(n.critical, msg)
}

type fakeJournal struct {
	mu    sync.Mutex
	err   error
	saved []models.TradeRecord
}

func (j *fakeJournal) Save(_ context.Context, rec models.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.saved = append(j.saved, rec)
	return nil
}

func (j *fakeJournal) setErr(err error) {
	j.mu.Lock()
	j.err = err
	j.mu.Unlock()
}

var errRejected = &exchange.Error{Kind: exchange.KindRejected, Op: "test", Code: -2019, Msg: "Margin is insufficient."}

type harness struct {
	s       *Session
	ex      *fakeExchange
	sched   *manualScheduler
	n       *recNotifier
	journal *fakeJournal
	cfg     config.Strategy
}

func newHarness(t *testing.T, mod ...func(*config.Strategy)) *harness {
	t.Helper()

	cfg := config.Default().Strategy
	cfg.ExecuteTrades = true
	for _, m := range mod {
		m(&cfg)
	}

	h := &harness{
		ex:      &fakeExchange{fillPrice: 100, mark: 100},
		sched:   &manualScheduler{},
		n:       &recNotifier{},
		journal: &fakeJournal{},
		cfg:     cfg,
	}
	h.s = New(context.Background(), Deps{
		Strategy:  cfg,
		Exchange:  h.ex,
		History:   NewHistory(h.journal),
		Notifier:  h.n,
		Logger:    zaptest.NewLogger(t),
		Scheduler: h.sched,
		Now:       func() time.Time { return t0 },
	})
	return h
}

func (h *harness) candidate(t *testing.T, symbol string) models.Candidate {
	t.Helper()
	prec := &models.InstrumentPrecision{Symbol: symbol, PricePrecision: 2, QuantityPrecision: 3, MinQty: 0.001, TickSize: 0.1}
	m := strategy.ComputeMetrics(100, prec, -0.002, h.cfg.Params())
	require.NotNil(t, m)
	return models.Candidate{
		Symbol:          symbol,
		FundingRate:     -0.002,
		NextFundingTime: fundingTime,
		MarkPrice:       100,
		Metrics:         m,
		MsToFunding:     fundingTime.Sub(t0).Milliseconds(),
	}
}

// open открывает позицию ABCUSDT и сбрасывает записанные вызовы.
func (h *harness) open(t *testing.T) *models.Position {
	t.Helper()
	require.NoError(t, h.s.Open(context.Background(), h.candidate(t, "ABCUSDT")))
	p := h.s.current()
	require.NotNil(t, p)
	h.ex.reset()
	return p
}
