package whatif

import (
	"context"
	"sync"
)

// PriceSource fetches historical daily closing prices for a ticker over a
// date range, restricted to trading days. An empty history is a valid answer
// (the ticker had no data in range); ErrDataUnavailable means the provider
// does not know the ticker at all.
type PriceSource interface {
	HistoricalPrices(ctx context.Context, ticker string, from, to Date) (*Series[Money], error)
}

type priceKey struct {
	ticker   string
	from, to Date
}

// CachedSource memoizes a PriceSource per (ticker, range). One CachedSource
// is created per build operation, so repeated lookups for the same ticker
// within a build hit the network only once. Safe for concurrent use.
type CachedSource struct {
	src PriceSource

	mu    sync.Mutex
	cache map[priceKey]*Series[Money]
}

// NewCachedSource wraps src with a per-(ticker,range) cache.
func NewCachedSource(src PriceSource) *CachedSource {
	return &CachedSource{src: src, cache: make(map[priceKey]*Series[Money])}
}

// HistoricalPrices implements PriceSource.
func (c *CachedSource) HistoricalPrices(ctx context.Context, ticker string, from, to Date) (*Series[Money], error) {
	key := priceKey{ticker, from, to}
	c.mu.Lock()
	if h, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return h, nil
	}
	c.mu.Unlock()

	h, err := c.src.HistoricalPrices(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = h
	c.mu.Unlock()
	return h, nil
}
