package exchange

import (
	"context"
	"time"

	"funding_bot/internal/models"
)

// Client - всё, что ядру нужно от биржи. Ошибки приходят уже нормализованными в *Error.
type Client interface {
	// GetFundingSnapshot может вернуть пустой список при временном сбое.
	GetFundingSnapshot(ctx context.Context) ([]models.FundingEntry, error)
	// GetInstrumentPrecisionTable вызывается один раз при старте.
	GetInstrumentPrecisionTable(ctx context.Context) (models.PrecisionTable, error)

	SetLeverage(ctx context.Context, symbol string, leverage int) error
	PlaceMarketOrder(ctx context.Context, symbol string, side models.OrderSide, qty float64, reduceOnly bool) (models.OrderResult, error)
	PlaceStopOrder(ctx context.Context, symbol string, side models.OrderSide, qty, triggerPrice float64) (models.OrderResult, error)
	PlaceTakeProfitOrder(ctx context.Context, symbol string, side models.OrderSide, qty, triggerPrice float64) (models.OrderResult, error)
	// CancelOrder: KindOrderNotFound значит ордера уже нет.
	CancelOrder(ctx context.Context, symbol, orderID string) error

	GetPosition(ctx context.Context, symbol string) (models.PositionInfo, error)
	GetRecentFills(ctx context.Context, symbol string, since time.Time, limit int) ([]models.Fill, error)
	MarkPrice(ctx context.Context, symbol string) (float64, error)
}
