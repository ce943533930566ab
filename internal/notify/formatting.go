package notify

import (
	"fmt"
	"strings"
	"time"

	"funding_bot/internal/models"
	"funding_bot/internal/runner/sessions"
)

const historyLimit = 10

// Reply - текст ответа на команду бота.
func Reply(cmd string, s *sessions.Session) string {
	switch cmd {
	case "status":
		return FormatStatus(s.Status(), time.Now())
	case "history":
		h := s.History()
		return FormatHistory(h.Snapshot(historyLimit), h.Totals())
	default:
		return "Команды: /status, /history"
	}
}

func FormatStatus(st models.SlotStatus, now time.Time) string {
	if st.Symbol == "" {
		s := fmt.Sprintf("📭 Позиции нет (%s)", st.State)
		if st.Busy {
			s += ", идёт размещение ордеров"
		}
		return s
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s %s [%s]\n", st.Side, st.Symbol, st.State)
	fmt.Fprintf(&b, "qty=%g @ %g, вход %s\n", st.Quantity, st.EntryPrice, st.EntryTime.UTC().Format(time.DateTime))
	if st.StopOrderID != "" {
		fmt.Fprintf(&b, "стоп: %s\n", st.StopOrderID)
	}
	switch {
	case st.CheckCompleted:
		b.WriteString("проверка прибыли: выполнена\n")
	case !st.CheckAt.IsZero():
		fmt.Fprintf(&b, "проверка прибыли через %s\n", st.CheckAt.Sub(now).Truncate(time.Second))
	}
	if st.Unprotected {
		b.WriteString("🆘 БЕЗ ЗАЩИТЫ, нужен оператор\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatHistory(recs []models.TradeRecord, tot sessions.Totals) string {
	if len(recs) == 0 {
		return "📭 Сделок ещё не было"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📒 Сделок: %d, в плюс: %d, PnL: %.4f$\n", tot.Trades, tot.Wins, tot.Pnl)
	for _, r := range recs {
		fmt.Fprintf(&b, "%s %s %s %g→%g PnL=%.4f (%s)\n",
			r.ClosedAt.UTC().Format("01-02 15:04"), r.Side, r.Symbol, r.EntryPrice, r.ExitPrice, r.RealizedPnl, r.Reason)
	}
	return strings.TrimRight(b.String(), "\n")
}
