package whatif

import (
	"context"
	"errors"
	"testing"
)

func TestBuildTimeline_OneSnapshotPerTradingDay(t *testing.T) {
	src := newFakeSource().
		set("NVDA", D("2024-01-02"), USD(100)).
		set("NVDA", D("2024-01-03"), USD(110)).
		set("NVDA", D("2024-01-04"), USD(120))

	purchases := []Purchase{{Ticker: "NVDA", Shares: Q(100)}}
	snapshots, err := BuildTimeline(context.Background(), src, D("2024-01-02"), USD(100000), purchases, D("2024-01-04"))
	if err != nil {
		t.Fatalf("BuildTimeline() error = %v", err)
	}

	if got, want := len(snapshots), 3; got != want {
		t.Fatalf("len(snapshots) = %d, want %d", got, want)
	}
	for i := 1; i < len(snapshots); i++ {
		if !snapshots[i-1].Date.Before(snapshots[i].Date) {
			t.Errorf("snapshots not strictly increasing at %d: %s then %s", i, snapshots[i-1].Date, snapshots[i].Date)
		}
	}

	// first total = starting cash - cost + shares x entry price
	first := snapshots[0]
	if got, want := first.Cash, USD(90000); !got.Equal(want) {
		t.Errorf("first.Cash = %v, want %v", got, want)
	}
	if got, want := first.TotalValue, USD(100000); !got.Equal(want) {
		t.Errorf("first.TotalValue = %v, want %v", got, want)
	}
	if got, want := snapshots[2].TotalValue, USD(102000); !got.Equal(want) {
		t.Errorf("last.TotalValue = %v, want %v", got, want)
	}
	for _, s := range snapshots {
		if s.PriceStale {
			t.Errorf("snapshot %s marked stale with full market data", s.Date)
		}
		if got, want := s.TotalValue, s.Cash.Add(s.MarketValue); !got.Equal(want) {
			t.Errorf("snapshot %s total %v != cash+market %v", s.Date, got, want)
		}
	}
}

func TestBuildTimeline_FixedEntryPrice(t *testing.T) {
	src := week("NVDA", USD(100))
	purchases := []Purchase{{Ticker: "NVDA", Shares: Q(100), Price: USD(90)}}

	snapshots, err := BuildTimeline(context.Background(), src, D("2024-01-01"), USD(100000), purchases, D("2024-01-05"))
	if err != nil {
		t.Fatalf("BuildTimeline() error = %v", err)
	}
	first := snapshots[0]
	if got, want := first.Cash, USD(91000); !got.Equal(want) {
		t.Errorf("first.Cash = %v, want %v", got, want)
	}
	// market value uses the close, not the fixed entry price
	if got, want := first.MarketValue, USD(10000); !got.Equal(want) {
		t.Errorf("first.MarketValue = %v, want %v", got, want)
	}
}

func TestBuildTimeline_InsufficientFunds(t *testing.T) {
	src := week("NVDA", USD(100))
	purchases := []Purchase{{Ticker: "NVDA", Shares: Q(100)}}

	_, err := BuildTimeline(context.Background(), src, D("2024-01-01"), USD(1000), purchases, D("2024-01-05"))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("BuildTimeline() error = %v, want ErrInsufficientFunds", err)
	}
}

func TestBuildTimeline_CarryForwardMissingPrice(t *testing.T) {
	// NVDA has no close on the 3rd, AAPL has all three days.
	src := newFakeSource().
		set("NVDA", D("2024-01-02"), USD(100)).
		set("NVDA", D("2024-01-04"), USD(120)).
		set("AAPL", D("2024-01-02"), USD(10)).
		set("AAPL", D("2024-01-03"), USD(10)).
		set("AAPL", D("2024-01-04"), USD(10))

	purchases := []Purchase{
		{Ticker: "NVDA", Shares: Q(10)},
		{Ticker: "AAPL", Shares: Q(10)},
	}
	snapshots, err := BuildTimeline(context.Background(), src, D("2024-01-02"), USD(10000), purchases, D("2024-01-04"))
	if err != nil {
		t.Fatalf("BuildTimeline() error = %v", err)
	}
	if got, want := len(snapshots), 3; got != want {
		t.Fatalf("len(snapshots) = %d, want %d", got, want)
	}
	// on the 3rd, NVDA carries forward its last known close of 100
	if got, want := snapshots[1].MarketValue, USD(1100); !got.Equal(want) {
		t.Errorf("MarketValue on %s = %v, want %v", snapshots[1].Date, got, want)
	}
}

func TestBuildTimeline_SynthesizedCalendarIsStale(t *testing.T) {
	// the source knows nothing, but the purchase price is fixed
	src := newFakeSource()
	purchases := []Purchase{{Ticker: "ZZZ", Shares: Q(10), Price: USD(50)}}

	snapshots, err := BuildTimeline(context.Background(), src, D("2024-01-01"), USD(1000), purchases, D("2024-01-07"))
	if err != nil {
		t.Fatalf("BuildTimeline() error = %v", err)
	}
	// Mon Jan 1 to Sun Jan 7 has five business days
	if got, want := len(snapshots), 5; got != want {
		t.Fatalf("len(snapshots) = %d, want %d", got, want)
	}
	for _, s := range snapshots {
		if !s.PriceStale {
			t.Errorf("snapshot %s should be stale on a synthesized calendar", s.Date)
		}
		if got, want := s.TotalValue, USD(1000); !got.Equal(want) {
			t.Errorf("snapshot %s total = %v, want %v", s.Date, got, want)
		}
	}
}

func TestBuildTimeline_Deterministic(t *testing.T) {
	src := week("NVDA", USD(100))
	purchases := []Purchase{{Ticker: "NVDA", Shares: Q(10)}}

	a, err := BuildTimeline(context.Background(), src, D("2024-01-01"), USD(10000), purchases, D("2024-01-05"))
	if err != nil {
		t.Fatalf("BuildTimeline() error = %v", err)
	}
	b, err := BuildTimeline(context.Background(), src, D("2024-01-01"), USD(10000), purchases, D("2024-01-05"))
	if err != nil {
		t.Fatalf("BuildTimeline() error = %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("len mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Date != b[i].Date || !a[i].TotalValue.Equal(b[i].TotalValue) {
			t.Errorf("snapshot %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestCachedSource_OneFetchPerTickerRange(t *testing.T) {
	src := week("NVDA", USD(100))
	cached := NewCachedSource(src)

	for i := 0; i < 3; i++ {
		if _, err := cached.HistoricalPrices(context.Background(), "NVDA", D("2024-01-01"), D("2024-01-05")); err != nil {
			t.Fatalf("HistoricalPrices() error = %v", err)
		}
	}
	if got, want := src.calls, 1; got != want {
		t.Errorf("src.calls = %d, want %d", got, want)
	}
}
