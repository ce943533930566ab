package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"funding_bot/internal/exchange"
	"funding_bot/internal/models"
	"funding_bot/internal/modules/config"
)

var _ exchange.Client = (*Client)(nil)

// свежесть mark-цены из websocket, дальше идём в REST
const markMaxAge = 5 * time.Second

// Marks - кэш mark-цен из websocket.
type Marks interface {
	Price(symbol string, maxAge time.Duration, now time.Time) (float64, bool)
}

// Client - адаптер Binance USDT-M futures под exchange.Client.
type Client struct {
	api   *futures.Client
	lim   *rate.Limiter
	marks Marks
	quote string
	log   *zap.Logger
	now   func() time.Time

	mu   sync.RWMutex
	prec models.PrecisionTable // для форматирования количества и цены
}

func NewClient(cfg *config.Config, marks Marks, log *zap.Logger) *Client {
	futures.UseTestnet = cfg.Binance.Testnet
	api := futures.NewClient(cfg.Binance.APIKey, cfg.Binance.APISecret)
	return New(api, cfg.Binance.RPS, cfg.Binance.Burst, cfg.Strategy.QuoteAsset, marks, log)
}

// New - для тестов: api можно направить на httptest через BaseURL.
func New(api *futures.Client, rps float64, burst int, quote string, marks Marks, log *zap.Logger) *Client {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		api:   api,
		lim:   rate.NewLimiter(rate.Limit(rps), burst),
		marks: marks,
		quote: quote,
		log:   log.Named("binance"),
		now:   time.Now,
	}
}

// wait - общий лимит на все REST-запросы.
func (c *Client) wait(ctx context.Context, op string) error {
	if err := c.lim.Wait(ctx); err != nil {
		return normalize(op, err)
	}
	return nil
}

func (c *Client) precision(ctx context.Context, symbol string) (*models.InstrumentPrecision, error) {
	c.mu.RLock()
	p, ok := c.prec.Lookup(symbol)
	c.mu.RUnlock()
	if ok {
		return p, nil
	}
	if _, err := c.GetInstrumentPrecisionTable(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	p, ok = c.prec.Lookup(symbol)
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("precision: unknown symbol %s", symbol)
	}
	return p, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func orderSide(s models.OrderSide) futures.SideType {
	if s == models.OrderSell {
		return futures.SideTypeSell
	}
	return futures.SideTypeBuy
}

func fromSide(s futures.SideType) models.OrderSide {
	if s == futures.SideTypeSell {
		return models.OrderSell
	}
	return models.OrderBuy
}

func msTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
