package service

import (
	"sync"
	"time"
)

// Mark - последнее значение из потока markPrice.
type Mark struct {
	Price           float64
	FundingRate     float64
	NextFundingTime time.Time
	At              time.Time
}

// MarkCache - symbol -> последняя mark-цена из websocket.
type MarkCache struct {
	mu sync.RWMutex
	m  map[string]Mark
}

func NewMarkCache() *MarkCache {
	return &MarkCache{m: make(map[string]Mark)}
}

func (c *MarkCache) Put(symbol string, m Mark) {
	c.mu.Lock()
	c.m[symbol] = m
	c.mu.Unlock()
}

// Price - цена, если она не старше maxAge.
func (c *MarkCache) Price(symbol string, maxAge time.Duration, now time.Time) (float64, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.RLock()
	m, ok := c.m[symbol]
	c.mu.RUnlock()
	if !ok || m.Price <= 0 || now.Sub(m.At) > maxAge {
		return 0, false
	}
	return m.Price, true
}

func (c *MarkCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
