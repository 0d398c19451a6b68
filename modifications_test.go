package whatif

import (
	"context"
	"errors"
	"testing"
)

func testBaseline(t *testing.T, src PriceSource) *Reality {
	t.Helper()
	r := &Reality{
		ID:           "base",
		Name:         "base",
		StartDate:    D("2024-01-01"),
		StartingCash: USD(10000),
		Purchases:    []Purchase{{Ticker: "NVDA", Shares: Q(10)}},
		ScenarioType: Custom,
	}
	snapshots, err := BuildTimeline(context.Background(), src, r.StartDate, r.StartingCash, r.Purchases, D("2024-01-05"))
	if err != nil {
		t.Fatalf("BuildTimeline() error = %v", err)
	}
	r.Snapshots = snapshots
	return r
}

func TestAlgorithmicTrades_DollarCostAverage(t *testing.T) {
	mods, err := AlgorithmicTrades(ScenarioConfig{
		Scenario: DollarCostAverage,
		From:     D("2024-01-01"),
		To:       D("2024-03-31"),
		Ticker:   "VOO",
		Shares:   Q(10),
	})
	if err != nil {
		t.Fatalf("AlgorithmicTrades() error = %v", err)
	}
	if got, want := len(mods), 3; got != want {
		t.Fatalf("len(mods) = %d, want %d", got, want)
	}
	wantDates := []Date{D("2024-01-01"), D("2024-02-01"), D("2024-03-01")}
	for i, m := range mods {
		if m.Date != wantDates[i] {
			t.Errorf("mods[%d].Date = %s, want %s", i, m.Date, wantDates[i])
		}
		if m.Action != Buy || m.Ticker != "VOO" || !m.Shares.Equal(Q(10)) {
			t.Errorf("mods[%d] = %+v, want monthly buy of 10 VOO", i, m)
		}
		if m.Source != Algorithmic {
			t.Errorf("mods[%d].Source = %q, want algorithmic", i, m.Source)
		}
	}
}

func TestAlgorithmicTrades_RotateIntoTech(t *testing.T) {
	mods, err := AlgorithmicTrades(ScenarioConfig{
		Scenario: RotateIntoTech,
		From:     D("2024-01-06"), // a Saturday
		To:       D("2024-03-31"),
	})
	if err != nil {
		t.Fatalf("AlgorithmicTrades() error = %v", err)
	}
	if got, want := len(mods), 1; got != want {
		t.Fatalf("len(mods) = %d, want %d", got, want)
	}
	m := mods[0]
	if m.Action != Reallocate || m.Ticker != "QQQ" || m.Weight != 0.6 {
		t.Errorf("mods[0] = %+v, want 60%% reallocation into QQQ", m)
	}
	if got, want := m.Date, D("2024-01-08"); got != want {
		t.Errorf("mods[0].Date = %s, want next business day %s", got, want)
	}
}

func TestAlgorithmicTrades_InvalidScenario(t *testing.T) {
	cases := []ScenarioConfig{
		{Scenario: "moonshot", From: D("2024-01-01"), To: D("2024-02-01")},
		{Scenario: DollarCostAverage, From: D("2024-01-01"), To: D("2024-02-01")}, // no ticker
		{Scenario: TakeProfits, From: D("2024-02-01"), To: D("2024-01-01"), Ticker: "NVDA", Shares: Q(1)},
	}
	for _, cfg := range cases {
		if _, err := AlgorithmicTrades(cfg); !errors.Is(err, ErrInvalidScenario) {
			t.Errorf("AlgorithmicTrades(%+v) error = %v, want ErrInvalidScenario", cfg, err)
		}
	}
}

func TestApplyModifications_EmptyIsBaseline(t *testing.T) {
	src := week("NVDA", USD(100))
	base := testBaseline(t, src)

	h, err := ApplyModifications(context.Background(), src, base, nil)
	if err != nil {
		t.Fatalf("ApplyModifications() error = %v", err)
	}
	if got, want := len(h.Snapshots), len(base.Snapshots); got != want {
		t.Fatalf("len(Snapshots) = %d, want %d", got, want)
	}
	for i := range h.Snapshots {
		if h.Snapshots[i].Date != base.Snapshots[i].Date || !h.Snapshots[i].TotalValue.Equal(base.Snapshots[i].TotalValue) {
			t.Errorf("snapshot %d differs from baseline", i)
		}
	}
	if len(h.DivergencePoints) != 0 {
		t.Errorf("DivergencePoints = %v, want none", h.DivergencePoints)
	}
}

func TestApplyModifications_SellThenBuy(t *testing.T) {
	src := week("NVDA", USD(100))
	for _, day := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"} {
		src.set("AAPL", D(day), USD(10))
	}
	base := testBaseline(t, src)

	mods := []Modification{
		{Date: D("2024-01-03"), Action: Sell, Ticker: "NVDA", Shares: Q(5), Source: User},
		{Date: D("2024-01-04"), Action: Buy, Ticker: "AAPL", Shares: Q(20), Source: User},
	}
	h, err := ApplyModifications(context.Background(), src, base, mods)
	if err != nil {
		t.Fatalf("ApplyModifications() error = %v", err)
	}

	// the prefix before the first modification is the baseline's
	for i := 0; i < 2; i++ {
		if !h.Snapshots[i].TotalValue.Equal(base.Snapshots[i].TotalValue) {
			t.Errorf("prefix snapshot %d differs from baseline", i)
		}
	}
	if got, want := len(h.Events), 2; got != want {
		t.Fatalf("len(Events) = %d, want %d", got, want)
	}

	last := h.Snapshots[len(h.Snapshots)-1]
	// 9000 start cash, +500 sell proceeds, -200 AAPL buy
	if got, want := last.Cash, USD(9300); !got.Equal(want) {
		t.Errorf("last.Cash = %v, want %v", got, want)
	}
	if got, want := last.Holdings["NVDA"], Q(5); !got.Equal(want) {
		t.Errorf("NVDA holding = %v, want %v", got, want)
	}
	if got, want := last.Holdings["AAPL"], Q(20); !got.Equal(want) {
		t.Errorf("AAPL holding = %v, want %v", got, want)
	}
	// flat prices, the total is conserved
	if got, want := last.TotalValue, USD(10000); !got.Equal(want) {
		t.Errorf("last.TotalValue = %v, want %v", got, want)
	}
}

func TestApplyModifications_OverdraftRejectsAtomically(t *testing.T) {
	src := week("NVDA", USD(100))
	base := testBaseline(t, src)

	mods := []Modification{
		{Date: D("2024-01-02"), Action: Sell, Ticker: "NVDA", Shares: Q(100), Source: User},
	}
	h, err := ApplyModifications(context.Background(), src, base, mods)
	if !errors.Is(err, ErrOverdraftTrade) {
		t.Fatalf("ApplyModifications() error = %v, want ErrOverdraftTrade", err)
	}
	if h != nil {
		t.Errorf("ApplyModifications() = %v, want nil on rejection", h)
	}
}

func TestApplyModifications_Idempotent(t *testing.T) {
	src := week("NVDA", USD(100))
	base := testBaseline(t, src)
	mods := []Modification{
		{Date: D("2024-01-03"), Action: Sell, Ticker: "NVDA", Shares: Q(5), Source: User},
	}

	a, err := ApplyModifications(context.Background(), src, base, mods)
	if err != nil {
		t.Fatalf("ApplyModifications() error = %v", err)
	}
	b, err := ApplyModifications(context.Background(), src, base, mods)
	if err != nil {
		t.Fatalf("ApplyModifications() error = %v", err)
	}
	for i := range a.Snapshots {
		if !a.Snapshots[i].TotalValue.Equal(b.Snapshots[i].TotalValue) {
			t.Errorf("snapshot %d not reproducible", i)
		}
	}
}

func TestApplyModifications_InvalidItems(t *testing.T) {
	src := week("NVDA", USD(100))
	base := testBaseline(t, src)

	t.Run("model item is dropped", func(t *testing.T) {
		mods := []Modification{
			{Date: D("2030-01-01"), Action: Buy, Ticker: "AAPL", Shares: Q(1), Source: LLM},
		}
		h, err := ApplyModifications(context.Background(), src, base, mods)
		if err != nil {
			t.Fatalf("ApplyModifications() error = %v", err)
		}
		if len(h.Events) != 0 {
			t.Errorf("Events = %v, want none after dropping the bad item", h.Events)
		}
	})

	t.Run("user item is fatal", func(t *testing.T) {
		mods := []Modification{
			{Date: D("2030-01-01"), Action: Buy, Ticker: "AAPL", Shares: Q(1), Source: User},
		}
		if _, err := ApplyModifications(context.Background(), src, base, mods); !errors.Is(err, ErrInvalidScenario) {
			t.Fatalf("ApplyModifications() error = %v, want ErrInvalidScenario", err)
		}
	})
}

func TestApplyModifications_Reallocate(t *testing.T) {
	src := week("NVDA", USD(100))
	for _, day := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"} {
		src.set("QQQ", D(day), USD(50))
	}
	base := testBaseline(t, src)

	mods := []Modification{
		{Date: D("2024-01-03"), Action: Reallocate, Ticker: "QQQ", Weight: 0.5, Source: User},
	}
	h, err := ApplyModifications(context.Background(), src, base, mods)
	if err != nil {
		t.Fatalf("ApplyModifications() error = %v", err)
	}
	last := h.Snapshots[len(h.Snapshots)-1]
	// total stays 10000 on flat prices, QQQ should be worth 5000
	if got, want := last.Holdings["QQQ"], Q(100); !got.Equal(want) {
		t.Errorf("QQQ holding = %v, want %v", got, want)
	}
	if got, want := last.TotalValue, USD(10000); !got.Equal(want) {
		t.Errorf("last.TotalValue = %v, want %v", got, want)
	}
}
