package sessions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"funding_bot/internal/exchange"
	"funding_bot/internal/models"
	"funding_bot/pkg/metrics"
	"funding_bot/pkg/tracing"
)

// CheckToken - идентичность позиции, для которой планировалась проверка.
type CheckToken struct {
	Symbol      string
	StopOrderID string
}

// ProfitCheck - снимок позиции на момент планирования.
type ProfitCheck struct {
	Token       CheckToken
	Side        models.Side
	Quantity    float64
	EntryPrice  float64
	FundingRate float64
	EntryFee    float64
	FundingGain float64
}

// minCheckRetry - нижняя граница повтора, нулевой таймер крутился бы, пока лок занят.
const minCheckRetry = 100 * time.Millisecond

func (s *Session) checkRetry() time.Duration {
	if s.cfg.ProfitCheckRetry < minCheckRetry {
		return minCheckRetry
	}
	return s.cfg.ProfitCheckRetry
}

type Decision int

const (
	Hold Decision = iota
	Close
)

func (d Decision) String() string {
	if d == Close {
		return "close"
	}
	return "hold"
}

// matchLocked: проверка всё ещё про живую позицию. Вызывать под s.mu.
func (s *Session) matchLocked(t CheckToken) bool {
	p := s.pos
	if p == nil || p.CheckCompleted {
		return false
	}
	if p.State != models.StateOpen && p.State != models.StateProfitCheckPending {
		return false
	}
	return p.Symbol == t.Symbol && p.StopOrderID == t.StopOrderID
}

// RunProfitCheck - колбэк отложенной проверки. Устаревший токен - ничего не делаем.
func (s *Session) RunProfitCheck(ctx context.Context, chk ProfitCheck) {
	log := s.log.With(zap.String("symbol", chk.Token.Symbol), zap.String("stop_order_id", chk.Token.StopOrderID))

	if !s.tryLock() {
		// идёт другая операция: перевзводим, проверка при этом не считается выполненной
		s.mu.Lock()
		if s.matchLocked(chk.Token) {
			retry := s.checkRetry()
			s.pos.PendingCheck = s.arm(chk, retry)
			s.mu.Unlock()
			metrics.ProfitChecks.WithLabelValues("retry").Inc()
			log.Info("[CHECK] лок занят, повтор", zap.Duration("in", retry))
			return
		}
		s.mu.Unlock()
		metrics.ProfitChecks.WithLabelValues("stale").Inc()
		return
	}
	defer s.unlock()

	s.mu.Lock()
	if !s.matchLocked(chk.Token) {
		s.mu.Unlock()
		metrics.ProfitChecks.WithLabelValues("stale").Inc()
		log.Info("[CHECK] позиция уже другая или закрыта, пропуск")
		return
	}
	pos := s.pos
	// одна проверка на позицию, даже если дальше что-то упадёт
	pos.CheckCompleted = true
	pos.PendingCheck = nil
	s.mu.Unlock()

	span, ctx := tracing.StartSpan(ctx, "session.profit_check", pos.Symbol)
	defer span.Finish()

	decision, net, err := s.Evaluate(ctx, chk)
	if err != nil {
		tracing.Fail(span, err)
		metrics.ProfitChecks.WithLabelValues("error").Inc()
		log.Warn("[CHECK] оценка не удалась, держим со стопом", zap.Error(err))
		s.setState(models.StateOpen)
		return
	}
	span.SetTag("decision", decision.String())

	if decision == Hold {
		metrics.ProfitChecks.WithLabelValues("hold").Inc()
		s.setState(models.StateOpen)
		log.Info("[CHECK] держим, стоп остаётся", zap.Float64("net", net))
		s.notify("⏸ %s: оценка %.4f$, держим со стопом", pos.Symbol, net)
		return
	}

	metrics.ProfitChecks.WithLabelValues("close").Inc()
	log.Info("[CHECK] оценка положительная, закрываем", zap.Float64("net", net))
	if err := s.closeAfterCheck(ctx, pos); err != nil {
		tracing.Fail(span, err)
	}
}

// Evaluate: цена PnL + замороженный фандинг - комиссия входа - свежая комиссия выхода.
func (s *Session) Evaluate(ctx context.Context, chk ProfitCheck) (Decision, float64, error) {
	mark, err := s.ex.MarkPrice(ctx, chk.Token.Symbol)
	if err != nil {
		return Hold, 0, fmt.Errorf("Evaluate %s: mark price: %w", chk.Token.Symbol, err)
	}
	if mark <= 0 {
		return Hold, 0, fmt.Errorf("Evaluate %s: bad mark price %v", chk.Token.Symbol, mark)
	}
	s.mu.Lock()
	if p := s.pos; p != nil && p.Symbol == chk.Token.Symbol {
		p.LastMarkPrice = mark
	}
	s.mu.Unlock()

	net := EstimateNet(chk, mark, s.cfg.TakerFee)
	s.log.Debug("[CHECK] расчёт",
		zap.String("symbol", chk.Token.Symbol),
		zap.Float64("mark", mark),
		zap.Float64("price_pnl", pricePnl(chk.Side, chk.EntryPrice, mark, chk.Quantity)),
		zap.Float64("funding_gain", chk.FundingGain),
		zap.Float64("net", net),
	)
	if net > 0 {
		return Close, net, nil
	}
	return Hold, net, nil
}

func EstimateNet(chk ProfitCheck, mark, takerFee float64) float64 {
	exitFee := mark * chk.Quantity * takerFee
	return pricePnl(chk.Side, chk.EntryPrice, mark, chk.Quantity) + chk.FundingGain - chk.EntryFee - exitFee
}

// closeAfterCheck: снять стоп, закрыть рынком. Под локом.
func (s *Session) closeAfterCheck(ctx context.Context, pos *models.Position) error {
	log := s.log.With(zap.String("symbol", pos.Symbol))
	s.setState(models.StateClosing)

	if err := s.ex.CancelOrder(ctx, pos.Symbol, pos.StopOrderID); err != nil {
		if !exchange.IsOrderNotFound(err) {
			metrics.Orders.WithLabelValues("cancel", "error").Inc()
			s.setState(models.StateOpen)
			log.Error("[CHECK] стоп не отменён, закрытие отменено", zap.Error(err))
			s.notify("❗️ %s: стоп не отменён (%v), держим позицию", pos.Symbol, err)
			return fmt.Errorf("closeAfterCheck %s: cancel stop: %w", pos.Symbol, err)
		}
		log.Info("[CHECK] стопа уже нет")
	} else {
		metrics.Orders.WithLabelValues("cancel", "ok").Inc()
	}

	s.mu.Lock()
	pos.StopOrderID = ""
	s.mu.Unlock()

	res, err := s.ex.PlaceMarketOrder(ctx, pos.Symbol, pos.Side.CloseSide(), pos.Quantity, true)
	if err != nil {
		metrics.Orders.WithLabelValues("market", "error").Inc()
		s.mu.Lock()
		pos.Unprotected = true
		s.mu.Unlock()
		s.setState(models.StateOpen)
		s.fatalManual(
			fmt.Sprintf("ЗАКРЫТИЕ %s НЕ УДАЛОСЬ ПОСЛЕ ОТМЕНЫ СТОПА: позиция %s qty=%g без защиты, закройте вручную", pos.Symbol, pos.Side, pos.Quantity),
			zap.String("symbol", pos.Symbol),
			zap.Error(err),
		)
		return fmt.Errorf("closeAfterCheck %s: flatten: %w", pos.Symbol, err)
	}
	metrics.Orders.WithLabelValues("market", "ok").Inc()

	exit := res.AvgPrice
	if exit <= 0 {
		exit = pos.LastMarkPrice
	}
	rec := models.TradeRecord{
		ClosedAt:    s.closeTime(res.FillTime),
		Symbol:      pos.Symbol,
		Side:        pos.Side,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exit,
		Quantity:    pos.Quantity,
		RealizedPnl: pricePnl(pos.Side, pos.EntryPrice, exit, pos.Quantity),
		Reason:      models.CloseAfterProfitCheck,
		EntryTime:   pos.EntryTime,
	}
	if err := s.history.Append(ctx, rec); err != nil {
		// позиция на бирже уже закрыта: оставляем слот, сверка запишет сделку по истории исполнений
		s.setState(models.StateOpen)
		log.Error("[CHECK] сделка не записана, допишет сверка", zap.Error(err))
		return err
	}

	s.clear()
	log.Info("[CHECK] позиция закрыта", zap.String("order_id", res.OrderID), zap.Float64("exit", exit))
	s.notify("💰 %s закрыт после проверки: exit=%g PnL≈%.4f$", pos.Symbol, exit, rec.RealizedPnl)
	return nil
}
