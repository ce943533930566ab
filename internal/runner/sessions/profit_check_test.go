package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funding_bot/internal/exchange"
	"funding_bot/internal/models"
	"funding_bot/internal/modules/config"
)

var errOrderNotFound = &exchange.Error{Kind: exchange.KindOrderNotFound, Op: "CancelOrder", Code: -2011, Msg: "Unknown order sent."}

func TestProfitCheck_ClosesWhenNetPositive(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	h.ex.mark = 101
	h.ex.fillPrice = 101

	h.sched.last(t).fire()

	assert.Equal(t, []string{"MarkPrice", "CancelOrder", "PlaceMarketOrder"}, h.ex.callNames())
	assert.Equal(t, []string{"s1"}, h.ex.cancels)
	assert.Equal(t, marketCall{symbol: "ABCUSDT", side: models.OrderSell, qty: 30, reduceOnly: true}, h.ex.markets[0])
	assert.False(t, h.s.Occupied())

	recs := h.s.History().Records()
	require.Len(t, recs, 1)
	assert.Equal(t, models.CloseAfterProfitCheck, recs[0].Reason)
	assert.InDelta(t, 101, recs[0].ExitPrice, 1e-9)
	assert.InDelta(t, 30, recs[0].RealizedPnl, 1e-9)
	assert.NotEmpty(t, recs[0].ID)
	assert.Len(t, h.journal.saved, 1)
}

func TestProfitCheck_HoldsWhenNetNegative(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	h.ex.mark = 99.5
	tk := h.sched.last(t)

	tk.fire()

	assert.Equal(t, []string{"MarkPrice"}, h.ex.callNames())
	st := h.s.Status()
	assert.Equal(t, models.StateOpen, st.State)
	assert.True(t, st.CheckCompleted)
	assert.Equal(t, "s1", st.StopOrderID)
	assert.InDelta(t, 99.5, h.s.current().LastMarkPrice, 1e-9)

	// повторный вызов той же проверки ничего не делает
	h.ex.reset()
	tk.fire()
	assert.Empty(t, h.ex.callNames())
}

func TestProfitCheck_MarkErrorHolds(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	h.ex.markErr = context.DeadlineExceeded

	h.sched.last(t).fire()

	assert.Equal(t, []string{"MarkPrice"}, h.ex.callNames())
	st := h.s.Status()
	assert.Equal(t, models.StateOpen, st.State)
	assert.True(t, st.CheckCompleted)
	assert.True(t, h.s.Occupied())
}

func TestProfitCheck_StopAlreadyGoneStillCloses(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	h.ex.mark = 101
	h.ex.cancelErr = errOrderNotFound

	h.sched.last(t).fire()

	assert.Len(t, h.ex.markets, 1)
	assert.False(t, h.s.Occupied())
	assert.Equal(t, 1, h.s.History().Len())
}

func TestProfitCheck_CancelErrorAbortsClose(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	h.ex.mark = 101
	h.ex.cancelErr = errRejected

	h.sched.last(t).fire()

	assert.Empty(t, h.ex.markets)
	st := h.s.Status()
	assert.Equal(t, models.StateOpen, st.State)
	assert.Equal(t, "s1", st.StopOrderID)
	assert.False(t, st.Unprotected)
	assert.Zero(t, h.s.History().Len())
}

func TestProfitCheck_FlattenFailureMarksUnprotected(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	h.ex.mark = 101
	h.ex.marketErrs = []error{errRejected}

	h.sched.last(t).fire()

	st := h.s.Status()
	assert.True(t, st.Unprotected)
	assert.Empty(t, st.StopOrderID)
	assert.Equal(t, models.StateOpen, st.State)
	assert.Len(t, h.n.critical, 1)

	// оператор закрыл руками, сверка записывает сделку
	h.ex.reset()
	h.ex.position = models.PositionInfo{Amount: 0, MarkPrice: 101}
	h.ex.fills = []models.Fill{
		{OrderID: "manual1", Side: models.OrderSell, Price: 100.5, Quantity: 30, RealizedPnl: 15, Time: t0.Add(time.Minute)},
	}
	require.NoError(t, h.s.Reconcile(context.Background()))

	recs := h.s.History().Records()
	require.Len(t, recs, 1)
	assert.Equal(t, models.CloseAfterProfitCheck, recs[0].Reason)
	assert.InDelta(t, 15, recs[0].RealizedPnl, 1e-9)
	assert.False(t, h.s.Occupied())
}

func TestProfitCheck_BusyLockRearms(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	h.ex.mark = 99.5
	h.s.lock.Store(true)

	h.sched.last(t).fire()

	assert.Empty(t, h.ex.callNames())
	require.Equal(t, 2, h.sched.count())
	retry := h.sched.last(t)
	assert.Equal(t, 2*time.Second, retry.d)
	assert.False(t, h.s.Status().CheckCompleted)

	h.s.lock.Store(false)
	retry.fire()
	assert.Equal(t, []string{"MarkPrice"}, h.ex.callNames())
	assert.True(t, h.s.Status().CheckCompleted)
}

func TestProfitCheck_BusyRearmNeverUsesZeroDelay(t *testing.T) {
	h := newHarness(t, func(s *config.Strategy) { s.ProfitCheckRetry = 0 })
	h.open(t)
	h.s.lock.Store(true)

	h.sched.last(t).fire()
	require.Equal(t, 2, h.sched.count())
	retry := h.sched.last(t)
	assert.Equal(t, minCheckRetry, retry.d)

	// каждый повтор при занятом локе ставит один таймер с той же задержкой
	retry.fire()
	require.Equal(t, 3, h.sched.count())
	assert.Equal(t, minCheckRetry, h.sched.last(t).d)
	assert.Empty(t, h.ex.callNames())
}

func TestProfitCheck_StaleAfterReconcileClose(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	tk := h.sched.last(t)

	h.ex.position = models.PositionInfo{Amount: 0}
	h.ex.fills = []models.Fill{
		{OrderID: "s1", Side: models.OrderSell, Price: 99.3, Quantity: 30, RealizedPnl: -21, Time: t0.Add(time.Second)},
	}
	require.NoError(t, h.s.Reconcile(context.Background()))
	assert.True(t, tk.stopped)

	// новая позиция по другому символу, старый таймер всё же сработал
	require.NoError(t, h.s.Open(context.Background(), h.candidate(t, "XYZUSDT")))
	h.ex.reset()
	tk.fire()

	assert.Empty(t, h.ex.callNames())
	st := h.s.Status()
	assert.Equal(t, "XYZUSDT", st.Symbol)
	assert.Equal(t, models.StateProfitCheckPending, st.State)
	assert.False(t, st.CheckCompleted)
}

func TestProfitCheck_JournalFailureLeftForReconcile(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	h.ex.mark = 101
	h.ex.fillPrice = 101
	h.journal.setErr(assert.AnError)

	h.sched.last(t).fire()

	st := h.s.Status()
	require.True(t, h.s.Occupied())
	assert.Equal(t, models.StateOpen, st.State)
	assert.Empty(t, st.StopOrderID)
	assert.True(t, st.CheckCompleted)
	assert.Zero(t, h.s.History().Len())

	h.journal.setErr(nil)
	h.ex.position = models.PositionInfo{Amount: 0}
	h.ex.fills = []models.Fill{
		{OrderID: "m1", Side: models.OrderSell, Price: 101, Quantity: 30, RealizedPnl: 30, Time: t0.Add(20 * time.Second)},
	}
	require.NoError(t, h.s.Reconcile(context.Background()))

	recs := h.s.History().Records()
	require.Len(t, recs, 1)
	assert.Equal(t, models.CloseAfterProfitCheck, recs[0].Reason)
	assert.False(t, h.s.Occupied())
}

func TestEstimateNet(t *testing.T) {
	long := ProfitCheck{Side: models.SideLong, Quantity: 30, EntryPrice: 100, EntryFee: 1.5, FundingGain: 6}
	assert.InDelta(t, 30+6-1.5-1.515, EstimateNet(long, 101, 0.0005), 1e-9)
	assert.InDelta(t, -15+6-1.5-1.4925, EstimateNet(long, 99.5, 0.0005), 1e-9)

	short := long
	short.Side = models.SideShort
	assert.InDelta(t, 15+6-1.5-1.4925, EstimateNet(short, 99.5, 0.0005), 1e-9)
}

func TestEvaluate_ZeroNetHolds(t *testing.T) {
	h := newHarness(t)
	h.ex.mark = 100
	chk := ProfitCheck{
		Token:    CheckToken{Symbol: "ABCUSDT"},
		Side:     models.SideLong,
		Quantity: 30, EntryPrice: 100, EntryFee: 0, FundingGain: 1.5,
	}

	d, net, err := h.s.Evaluate(context.Background(), chk)
	require.NoError(t, err)
	assert.Equal(t, Hold, d)
	assert.InDelta(t, 0, net, 1e-9)
}
