package whatif

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
)

// priceBook holds one close-price history per ticker over the build range.
type priceBook map[string]*Series[Money]

// asOf returns the close on day, or the last known close before it
// (carry-forward, never interpolate).
func (b priceBook) asOf(ticker string, day Date) (Money, bool) {
	h, ok := b[ticker]
	if !ok {
		return Money{}, false
	}
	return h.ValueAsOf(day)
}

// fetchPriceBook fetches price histories for all tickers concurrently and
// joins before returning. Tickers unknown to the source are logged as
// warnings and left out of the book, valuation then carries entry prices
// forward.
func fetchPriceBook(ctx context.Context, src PriceSource, tickers []string, from, to Date) (priceBook, error) {
	book := make(priceBook, len(tickers))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, ticker := range tickers {
		g.Go(func() error {
			h, err := src.HistoricalPrices(ctx, ticker, from, to)
			if err != nil {
				if errors.Is(err, ErrDataUnavailable) {
					log.Printf("warning: %v", err)
					return nil
				}
				return err
			}
			mu.Lock()
			book[ticker] = h
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return book, nil
}

// tradingCalendar derives the snapshot calendar for [from, to] from the union
// of trading days across the fetched histories. When no ticker has any data
// in range it synthesizes plain business days as a last resort, and the
// returned stale flag marks every snapshot built on it.
func tradingCalendar(book priceBook, from, to Date) (days []Date, stale bool) {
	histories := make([]*Series[Money], 0, len(book))
	for _, h := range book {
		if h.Len() > 0 {
			histories = append(histories, h)
		}
	}
	if len(histories) == 0 {
		for on := from.NextBusinessDay(); !on.After(to); on = on.Add(1).NextBusinessDay() {
			days = append(days, on)
		}
		return days, true
	}
	for on := range Iterate(histories...) {
		if on.Before(from) || on.After(to) {
			continue
		}
		days = append(days, on)
	}
	return days, false
}

func cloneHoldings(holdings map[string]Quantity) map[string]Quantity {
	out := make(map[string]Quantity, len(holdings))
	for k, v := range holdings {
		out[k] = v
	}
	return out
}

// BuildTimeline replays historical market prices into one Snapshot per
// trading day from start to end. Entry prices come from the purchases when
// fixed, otherwise from the first close on or after start. It fails with
// ErrInsufficientFunds when starting cash cannot cover the purchases.
//
// Given the same purchases, range and price data, the produced sequence is
// exactly reproducible.
func BuildTimeline(ctx context.Context, src PriceSource, start Date, startingCash Money, purchases []Purchase, end Date) ([]Snapshot, error) {
	if end.IsZero() {
		end = Today()
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end %s is before start %s", end, start)
	}
	for _, p := range purchases {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	cached := NewCachedSource(src)
	tickers := purchaseTickers(purchases)
	book, err := fetchPriceBook(ctx, cached, tickers, start, end)
	if err != nil {
		return nil, err
	}

	// Resolve entry prices and the initial position.
	currency := startingCash.Currency()
	entries := make(map[string]Money, len(tickers))
	holdings := make(map[string]Quantity, len(purchases))
	cost := M(0, currency)
	for _, p := range purchases {
		price := p.Price
		if !p.HasPrice() {
			h := book[p.Ticker]
			if h == nil || h.Len() == 0 {
				return nil, fmt.Errorf("cannot price purchase of %q, no close on or after %s: %w", p.Ticker, start, ErrDataUnavailable)
			}
			_, price = h.Oldest()
		}
		entries[p.Ticker] = price
		cost = cost.Add(price.Mul(p.Shares))
		holdings[p.Ticker] = holdings[p.Ticker].Add(p.Shares)
	}
	cash := startingCash.Sub(cost)
	if cash.IsNegative() {
		return nil, fmt.Errorf("starting cash %s cannot cover purchases costing %s: %w", startingCash, cost, ErrInsufficientFunds)
	}

	calendar, stale := tradingCalendar(book, start, end)

	snapshots := make([]Snapshot, 0, len(calendar))
	for _, on := range calendar {
		mv := M(0, currency)
		for ticker, shares := range holdings {
			price, ok := book.asOf(ticker, on)
			if !ok {
				// no close yet for that ticker, the position is still
				// valued at its entry price
				price = entries[ticker]
			}
			mv = mv.Add(price.Mul(shares))
		}
		snapshots = append(snapshots, Snapshot{
			Date:        on,
			Cash:        cash,
			Holdings:    cloneHoldings(holdings),
			MarketValue: mv,
			TotalValue:  cash.Add(mv),
			PriceStale:  stale,
		})
	}
	return snapshots, nil
}

// purchaseTickers returns the unique tickers of the purchases, in first-seen
// order.
func purchaseTickers(purchases []Purchase) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(purchases))
	for _, p := range purchases {
		if !seen[p.Ticker] {
			seen[p.Ticker] = true
			out = append(out, p.Ticker)
		}
	}
	return out
}
