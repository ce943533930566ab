package sessions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"funding_bot/internal/models"
	"funding_bot/pkg/metrics"
	"funding_bot/pkg/tracing"
)

// Open - последовательность OPENING: плечо -> рыночный вход -> стоп (-> тейк).
// Если вход прошёл, а стоп нет, позиция без защиты уходит в аварийное закрытие.
func (s *Session) Open(ctx context.Context, c models.Candidate) (err error) {
	if c.Metrics == nil {
		return fmt.Errorf("Open %s: candidate without metrics", c.Symbol)
	}
	if !s.tryLock() {
		return ErrBusy
	}
	defer s.unlock()

	if s.Occupied() {
		return ErrOccupied
	}

	span, ctx := tracing.StartSpan(ctx, "session.open", c.Symbol)
	defer func() {
		tracing.Fail(span, err)
		span.Finish()
	}()

	log := s.log.With(zap.String("symbol", c.Symbol), zap.String("side", string(s.cfg.Side)))
	m := c.Metrics

	s.setState(models.StateOpening)
	log.Info("[OPEN] вход",
		zap.Float64("rate", c.FundingRate),
		zap.Float64("qty", m.Quantity),
		zap.Float64("stop", m.StopPrice),
		zap.Float64("funding_gain", m.FundingGain),
		zap.Int64("ms_to_funding", c.MsToFunding),
	)

	// 1. плечо
	if err = s.ex.SetLeverage(ctx, c.Symbol, s.cfg.Leverage); err != nil {
		s.setState(models.StateEmpty)
		metrics.Entries.WithLabelValues("rejected").Inc()
		log.Error("[OPEN] плечо не выставлено", zap.Error(err))
		s.notify("❌ %s: плечо %dx не выставлено: %v", c.Symbol, s.cfg.Leverage, err)
		return fmt.Errorf("Open %s: set leverage: %w", c.Symbol, err)
	}

	// 2. рыночный вход
	entry, err := s.ex.PlaceMarketOrder(ctx, c.Symbol, s.cfg.Side.EntrySide(), m.Quantity, false)
	if err != nil {
		s.setState(models.StateEmpty)
		metrics.Orders.WithLabelValues("market", "error").Inc()
		metrics.Entries.WithLabelValues("rejected").Inc()
		log.Error("[OPEN] рыночный ордер отклонён", zap.Error(err))
		s.notify("❌ %s: вход отклонён: %v", c.Symbol, err)
		return fmt.Errorf("Open %s: market order: %w", c.Symbol, err)
	}
	metrics.Orders.WithLabelValues("market", "ok").Inc()

	// 3. фактическая цена и объём
	qty := entry.FilledQty
	if qty <= 0 {
		qty = m.Quantity
	}
	price := entry.AvgPrice
	if price <= 0 {
		if mark, mErr := s.ex.MarkPrice(ctx, c.Symbol); mErr == nil && mark > 0 {
			price = mark
		} else {
			price = c.MarkPrice
		}
	}
	entryTime := entry.FillTime
	if entryTime.IsZero() {
		entryTime = s.now()
	}

	gain := price * qty * c.FundingRate
	if s.cfg.Side == models.SideLong {
		gain = -gain
	}

	pos := &models.Position{
		Symbol:        c.Symbol,
		Side:          s.cfg.Side,
		EntryPrice:    price,
		Quantity:      qty,
		EntryTime:     entryTime,
		FundingRate:   c.FundingRate,
		FundingTime:   c.NextFundingTime,
		EntryFee:      m.EntryFee,
		FundingGain:   gain,
		LastMarkPrice: price,
		State:         models.StateOpening,
	}

	if price <= 0 {
		log.Error("[OPEN] нет цены входа, закрываем", zap.String("order_id", entry.OrderID))
		err = fmt.Errorf("Open %s: no entry price for order %s", c.Symbol, entry.OrderID)
		if uErr := s.emergencyUnwind(ctx, pos, "нет цены входа"); uErr != nil {
			err = fmt.Errorf("%w (unwind: %v)", err, uErr)
		}
		return err
	}

	// 4. защитный стоп на исполненный объём
	stop, err := s.ex.PlaceStopOrder(ctx, c.Symbol, s.cfg.Side.CloseSide(), qty, m.StopPrice)
	if err != nil {
		metrics.Orders.WithLabelValues("stop", "error").Inc()
		log.Error("[OPEN] стоп не поставлен, позиция без защиты", zap.Error(err))
		if uErr := s.emergencyUnwind(ctx, pos, "стоп не поставлен"); uErr != nil {
			return fmt.Errorf("Open %s: stop order: %w (unwind: %v)", c.Symbol, err, uErr)
		}
		return fmt.Errorf("Open %s: stop order: %w", c.Symbol, err)
	}
	metrics.Orders.WithLabelValues("stop", "ok").Inc()
	pos.StopOrderID = stop.OrderID

	// 5. тейк только для fixed_tp_sl, его отказ не критичен
	if s.cfg.ExitPolicy == models.ExitFixedTPSL && m.TakeProfitPrice > 0 {
		tp, tpErr := s.ex.PlaceTakeProfitOrder(ctx, c.Symbol, s.cfg.Side.CloseSide(), qty, m.TakeProfitPrice)
		if tpErr != nil {
			metrics.Orders.WithLabelValues("take_profit", "error").Inc()
			log.Warn("[OPEN] тейк не поставлен, остаёмся под стопом", zap.Error(tpErr))
		} else {
			metrics.Orders.WithLabelValues("take_profit", "ok").Inc()
			pos.TakeProfitOrderID = tp.OrderID
		}
	}

	pos.State = models.StateOpen
	s.commit(pos)
	metrics.Entries.WithLabelValues("opened").Inc()

	log.Info("[OPEN] позиция открыта",
		zap.Float64("entry", price),
		zap.Float64("qty", qty),
		zap.String("stop_order_id", pos.StopOrderID),
		zap.String("tp_order_id", pos.TakeProfitOrderID),
	)
	s.notify("✅ %s %s открыт: qty=%g @ %g, SL=%g, ставка %.4f%%, фандинг ≈ %.4f$",
		pos.Side, pos.Symbol, qty, price, m.StopPrice, c.FundingRate*100, gain)

	if s.cfg.ExitPolicy == models.ExitProfitCheck {
		s.scheduleProfitCheck(pos)
	}
	return nil
}

// scheduleProfitCheck ставит одноразовую проверку на fundingTime + delay.
func (s *Session) scheduleProfitCheck(pos *models.Position) {
	at := pos.FundingTime.Add(s.cfg.ProfitCheckDelay)
	delay := at.Sub(s.now())
	if delay <= 0 {
		// момент проверки уже прошёл, остаёмся только под стопом
		s.log.Warn("[CHECK] время проверки прошло, не планируем",
			zap.String("symbol", pos.Symbol), zap.Time("check_at", at))
		return
	}

	chk := ProfitCheck{
		Token:       CheckToken{Symbol: pos.Symbol, StopOrderID: pos.StopOrderID},
		Side:        pos.Side,
		Quantity:    pos.Quantity,
		EntryPrice:  pos.EntryPrice,
		FundingRate: pos.FundingRate,
		EntryFee:    pos.EntryFee,
		FundingGain: pos.FundingGain,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos != pos {
		return
	}
	pos.CheckAt = at
	pos.State = models.StateProfitCheckPending
	s.state = pos.State
	pos.PendingCheck = s.arm(chk, delay)

	s.log.Info("[CHECK] проверка прибыли запланирована",
		zap.String("symbol", pos.Symbol),
		zap.Time("check_at", at),
		zap.Duration("in", delay.Truncate(time.Millisecond)),
	)
}

func (s *Session) arm(chk ProfitCheck, d time.Duration) models.CancelHandle {
	return s.sched.AfterFunc(d, func() { s.RunProfitCheck(s.ctx, chk) })
}
