package sessions

import (
	"context"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"funding_bot/internal/models"
	"funding_bot/pkg/metrics"
)

// Journal - внешний журнал сделок (postgres). Только запись.
type Journal interface {
	Save(ctx context.Context, rec models.TradeRecord) error
}

// History - append-only история сделок в памяти.
type History struct {
	mu      sync.Mutex
	records []models.TradeRecord
	journal Journal
}

func NewHistory(j Journal) *History {
	return &History{journal: j}
}

// Append: сначала журнал, потом память. Ошибка журнала - запись не добавлена,
// вызывающий повторит на следующем тике.
func (h *History) Append(ctx context.Context, rec models.TradeRecord) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("history.Append: %w", err)
		}
	}()

	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if h.journal != nil {
		if err = h.journal.Save(ctx, rec); err != nil {
			return err
		}
	}

	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()

	metrics.Trades.WithLabelValues(string(rec.Reason)).Inc()
	metrics.RealizedPnl.Add(rec.RealizedPnl)
	return nil
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Records в порядке добавления.
func (h *History) Records() []models.TradeRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.TradeRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Snapshot - последние n записей, новые первыми. n <= 0 - все.
func (h *History) Snapshot(n int) []models.TradeRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.records) {
		n = len(h.records)
	}
	out := make([]models.TradeRecord, 0, n)
	for i := len(h.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.records[i])
	}
	return out
}

type Totals struct {
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	Pnl    float64 `json:"pnl"`
}

func (h *History) Totals() Totals {
	h.mu.Lock()
	defer h.mu.Unlock()
	var t Totals
	for _, r := range h.records {
		t.Trades++
		t.Pnl += r.RealizedPnl
		if r.RealizedPnl > 0 {
			t.Wins++
		}
	}
	return t
}
