package whatif

import "context"

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// D is a helper for test to parse a date from const
func D(s string) Date { return MustParse(s) }

// fakeSource is a deterministic in-memory PriceSource for tests.
type fakeSource struct {
	prices map[string]*Series[Money]
	calls  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{prices: make(map[string]*Series[Money])}
}

// set records one close.
func (f *fakeSource) set(ticker string, on Date, price Money) *fakeSource {
	h, ok := f.prices[ticker]
	if !ok {
		h = &Series[Money]{}
		f.prices[ticker] = h
	}
	h.Append(on, price)
	return f
}

func (f *fakeSource) HistoricalPrices(_ context.Context, ticker string, from, to Date) (*Series[Money], error) {
	f.calls++
	src, ok := f.prices[ticker]
	if !ok {
		return nil, ErrDataUnavailable
	}
	h := &Series[Money]{}
	for on, price := range src.Values() {
		if on.Before(from) || on.After(to) {
			continue
		}
		h.Append(on, price)
	}
	return h, nil
}

// week returns a fakeSource quoting ticker every business day of 2024-01-01
// week at a constant price.
func week(ticker string, price Money) *fakeSource {
	f := newFakeSource()
	for _, day := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"} {
		f.set(ticker, D(day), price)
	}
	return f
}
