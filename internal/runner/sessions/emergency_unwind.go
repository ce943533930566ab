package sessions

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"funding_bot/internal/exchange"
	"funding_bot/internal/models"
	"funding_bot/pkg/metrics"
	"funding_bot/pkg/tracing"
)

// emergencyUnwind закрывает позицию reduce-only рынком. Вход сюда только из OPENING,
// поэтому лок уже взят вызывающим.
// Успех: слот пуст. Неудача: позиция остаётся в слоте как незащищённая, нужен оператор.
func (s *Session) emergencyUnwind(ctx context.Context, pos *models.Position, reason string) (err error) {
	span, ctx := tracing.StartSpan(ctx, "session.emergency_unwind", pos.Symbol)
	defer func() {
		tracing.Fail(span, err)
		span.Finish()
	}()

	log := s.log.With(zap.String("symbol", pos.Symbol), zap.String("reason", reason))
	pos.State = models.StateEmergencyUnwind
	s.setState(models.StateEmergencyUnwind)
	log.Warn("[UNWIND] аварийное закрытие", zap.Float64("qty", pos.Quantity))

	res, err := s.ex.PlaceMarketOrder(ctx, pos.Symbol, pos.Side.CloseSide(), pos.Quantity, true)
	if err != nil {
		metrics.Orders.WithLabelValues("market", "error").Inc()
		pos.Unprotected = true
		pos.State = models.StateOpen
		s.commit(pos)
		s.fatalManual(
			fmt.Sprintf("АВАРИЙНОЕ ЗАКРЫТИЕ %s НЕ УДАЛОСЬ: позиция %s qty=%g без стопа, закройте вручную", pos.Symbol, pos.Side, pos.Quantity),
			zap.String("symbol", pos.Symbol),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return fmt.Errorf("emergency unwind %s: %w", pos.Symbol, err)
	}
	metrics.Orders.WithLabelValues("market", "ok").Inc()
	metrics.Entries.WithLabelValues("unwound").Inc()

	// висящий стоп больше не нужен
	if pos.StopOrderID != "" {
		if cErr := s.ex.CancelOrder(ctx, pos.Symbol, pos.StopOrderID); cErr != nil && !exchange.IsOrderNotFound(cErr) {
			log.Warn("[UNWIND] стоп не отменён", zap.Error(cErr))
		}
	}

	exit := res.AvgPrice
	if exit <= 0 {
		exit = pos.EntryPrice
	}
	rec := models.TradeRecord{
		ClosedAt:    s.closeTime(res.FillTime),
		Symbol:      pos.Symbol,
		Side:        pos.Side,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exit,
		Quantity:    pos.Quantity,
		RealizedPnl: pricePnl(pos.Side, pos.EntryPrice, exit, pos.Quantity),
		Reason:      models.CloseEmergencyUnwind,
		EntryTime:   pos.EntryTime,
	}
	if hErr := s.history.Append(ctx, rec); hErr != nil {
		log.Error("[UNWIND] сделка не записана", zap.Error(hErr))
	}

	s.clear()
	log.Warn("[UNWIND] позиция закрыта", zap.String("order_id", res.OrderID), zap.Float64("exit", exit))
	s.notify("⚠️ %s: аварийно закрыт (%s), PnL≈%.4f$", pos.Symbol, reason, rec.RealizedPnl)
	return nil
}

func pricePnl(side models.Side, entry, exit, qty float64) float64 {
	if side == models.SideShort {
		return (entry - exit) * qty
	}
	return (exit - entry) * qty
}
