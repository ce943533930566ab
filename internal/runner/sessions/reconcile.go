package sessions

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"funding_bot/internal/exchange"
	"funding_bot/internal/models"
	"funding_bot/pkg/tracing"
)

// Reconcile - раз в тик: если биржа показывает нулевую позицию, пишем сделку и освобождаем слот.
// Слот чистится только после записи; ошибка записи - повтор на следующем тике.
func (s *Session) Reconcile(ctx context.Context) (err error) {
	if !s.tryLock() {
		return nil
	}
	defer s.unlock()

	pos := s.current()
	if pos == nil {
		return nil
	}

	span, ctx := tracing.StartSpan(ctx, "session.reconcile", pos.Symbol)
	defer func() {
		tracing.Fail(span, err)
		span.Finish()
	}()

	info, err := s.ex.GetPosition(ctx, pos.Symbol)
	if err != nil {
		s.log.Warn("[SYNC] позиция не получена", zap.String("symbol", pos.Symbol), zap.Error(err))
		return fmt.Errorf("Reconcile %s: %w", pos.Symbol, err)
	}

	s.mu.Lock()
	if info.MarkPrice > 0 {
		pos.LastMarkPrice = info.MarkPrice
	}
	s.mu.Unlock()

	if amt := math.Abs(info.Amount); amt > 0 && amt >= pos.Quantity*s.cfg.PositionZeroTolerance {
		return nil
	}

	// позиция закрыта снаружи: отложенная проверка больше не нужна
	s.mu.Lock()
	if pos.PendingCheck != nil {
		pos.PendingCheck.Stop()
		pos.PendingCheck = nil
	}
	s.mu.Unlock()
	s.setState(models.StateClosing)

	log := s.log.With(zap.String("symbol", pos.Symbol))
	log.Info("[SYNC] позиция закрыта на бирже, разбираем причину")

	since := pos.EntryTime.Add(-s.cfg.FillLookback)
	fills, fErr := s.ex.GetRecentFills(ctx, pos.Symbol, since, s.cfg.FillLimit)
	if fErr != nil {
		log.Warn("[SYNC] история исполнений не получена", zap.Error(fErr))
		fills = nil
	}

	rec := s.resolveClose(pos, fills, info)
	if err = s.history.Append(ctx, rec); err != nil {
		log.Error("[SYNC] сделка не записана, повтор на следующем тике", zap.Error(err))
		return fmt.Errorf("Reconcile %s: %w", pos.Symbol, err)
	}

	// остатки стопа/тейка, ошибки не важны
	if pos.StopOrderID != "" && rec.Reason != models.CloseStopHit {
		s.cancelQuiet(ctx, pos.Symbol, pos.StopOrderID)
	}
	if pos.TakeProfitOrderID != "" && rec.Reason != models.CloseTakeProfitHit {
		s.cancelQuiet(ctx, pos.Symbol, pos.TakeProfitOrderID)
	}

	s.clear()
	log.Info("[SYNC] сделка записана",
		zap.String("reason", string(rec.Reason)),
		zap.Float64("exit", rec.ExitPrice),
		zap.Float64("pnl", rec.RealizedPnl),
	)
	s.notify("📕 %s %s закрыт: %s, exit=%g, PnL=%.4f$", rec.Side, rec.Symbol, rec.Reason, rec.ExitPrice, rec.RealizedPnl)
	return nil
}

// closingOrder - исполнения одного закрывающего ордера.
type closingOrder struct {
	orderID  string
	qty      float64
	notional float64
	pnl      float64
	last     time.Time
}

// resolveClose ищет закрывающий ордер и определяет причину.
// Исполнения группируются по ордеру: стоп может исполниться несколькими сделками.
func (s *Session) resolveClose(pos *models.Position, fills []models.Fill, info models.PositionInfo) models.TradeRecord {
	rec := models.TradeRecord{
		ClosedAt:   s.now(),
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		Quantity:   pos.Quantity,
		Reason:     models.CloseUnknown,
		EntryTime:  pos.EntryTime,
	}

	closeSide := pos.Side.CloseSide()
	orders := map[string]*closingOrder{}
	for _, f := range fills {
		if f.Side != closeSide || f.RealizedPnl == 0 || f.Time.Before(pos.EntryTime) {
			continue
		}
		o, ok := orders[f.OrderID]
		if !ok {
			o = &closingOrder{orderID: f.OrderID}
			orders[f.OrderID] = o
		}
		o.qty += f.Quantity
		o.notional += f.Price * f.Quantity
		o.pnl += f.RealizedPnl
		if f.Time.After(o.last) {
			o.last = f.Time
		}
	}

	var match *closingOrder
	tol := pos.Quantity * s.cfg.FillQtyTolerance
	for _, o := range orders {
		if math.Abs(o.qty-pos.Quantity) > tol {
			continue
		}
		if match == nil || o.last.After(match.last) {
			match = o
		}
	}

	if match == nil {
		// нет подходящего исполнения: лучшая оценка по данным позиции
		rec.ExitPrice = info.MarkPrice
		if rec.ExitPrice <= 0 {
			rec.ExitPrice = pos.LastMarkPrice
		}
		rec.RealizedPnl = info.UnrealizedPnl
		return rec
	}

	rec.ClosedAt = match.last
	rec.ExitPrice = match.notional / match.qty
	rec.RealizedPnl = match.pnl

	switch {
	case pos.StopOrderID != "" && match.orderID == pos.StopOrderID:
		rec.Reason = models.CloseStopHit
	case pos.TakeProfitOrderID != "" && match.orderID == pos.TakeProfitOrderID:
		rec.Reason = models.CloseTakeProfitHit
	case pos.CheckCompleted && pos.StopOrderID == "":
		rec.Reason = models.CloseAfterProfitCheck
	default:
		rec.Reason = models.CloseOther
	}
	return rec
}

func (s *Session) cancelQuiet(ctx context.Context, symbol, orderID string) {
	if err := s.ex.CancelOrder(ctx, symbol, orderID); err != nil && !exchange.IsOrderNotFound(err) {
		s.log.Debug("[SYNC] остаточный ордер не отменён",
			zap.String("symbol", symbol), zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *Session) closeTime(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}
