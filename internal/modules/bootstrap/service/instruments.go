package service

import (
	"context"
	"fmt"
	"sync"

	"funding_bot/internal/models"
)

// PrecisionSource - откуда грузится таблица (exchange.Client).
type PrecisionSource interface {
	GetInstrumentPrecisionTable(ctx context.Context) (models.PrecisionTable, error)
}

// Instruments хранит таблицу точностей, загруженную один раз.
// Пока загрузка не удалась, Table пробует снова.
type Instruments struct {
	src PrecisionSource

	mu    sync.Mutex
	table models.PrecisionTable
}

func NewInstruments(src PrecisionSource) *Instruments {
	return &Instruments{src: src}
}

func (i *Instruments) Table(ctx context.Context) (models.PrecisionTable, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.table != nil {
		return i.table, nil
	}
	t, err := i.src.GetInstrumentPrecisionTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("Instruments.Table: %w", err)
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("Instruments.Table: empty precision table")
	}
	i.table = t
	return t, nil
}

// Drop убирает символ из таблицы (не прошёл проверку).
func (i *Instruments) Drop(symbol string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.table == nil {
		return
	}
	next := make(models.PrecisionTable, len(i.table))
	for k, v := range i.table {
		if k != symbol {
			next[k] = v
		}
	}
	i.table = next
}
