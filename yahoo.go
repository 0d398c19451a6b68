package whatif

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
)

// YahooSource fetches daily closes from Yahoo Finance.
type YahooSource struct {
	// Currency of the returned prices. Defaults to USD; Yahoo's chart API
	// does not repeat the currency per bar.
	Currency string
}

// NewYahooSource returns a Yahoo-backed PriceSource quoting in USD.
func NewYahooSource() *YahooSource { return &YahooSource{Currency: "USD"} }

// HistoricalPrices implements PriceSource. It retries the fetch once before
// giving up with ErrDataUnavailable.
func (y *YahooSource) HistoricalPrices(ctx context.Context, ticker string, from, to Date) (*Series[Money], error) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, err := y.fetch(ticker, from, to)
		if err == nil {
			return h, nil
		}
		lastErr = err
		log.Printf("fetch %q attempt %d failed: %v", ticker, attempt, err)
	}
	return nil, fmt.Errorf("no price data for %q in [%s, %s]: %v: %w", ticker, from, to, lastErr, ErrDataUnavailable)
}

func (y *YahooSource) fetch(ticker string, from, to Date) (*Series[Money], error) {
	currency := y.Currency
	if currency == "" {
		currency = "USD"
	}
	// Yahoo's End is exclusive-ish depending on timezone, one extra day makes
	// the requested range inclusive.
	start, end := from.Time(), to.Add(1).Time()
	params := &chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	h := &Series[Money]{}
	for iter.Next() {
		bar := iter.Bar()
		on := DateOf(time.Unix(int64(bar.Timestamp), 0))
		if on.After(to) {
			continue
		}
		h.Append(on, M(bar.Close, currency))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return h, nil
}
