package whatif

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ScenarioType qualifies a Reality's intent.
type ScenarioType string

const (
	Bull   ScenarioType = "bull"
	Bear   ScenarioType = "bear"
	Custom ScenarioType = "custom"
)

// ValidScenarioType returns true for one of the known scenario types.
func ValidScenarioType(s ScenarioType) bool {
	switch s {
	case Bull, Bear, Custom:
		return true
	}
	return false
}

// Action is the kind of trade a Modification describes.
type Action string

const (
	Buy        Action = "buy"
	Sell       Action = "sell"
	Hold       Action = "hold"
	Reallocate Action = "reallocate"
)

// Source tells where a Modification came from.
type Source string

const (
	Algorithmic Source = "algorithmic"
	LLM         Source = "llm"
	User        Source = "user"
)

// Purchase is one initial position of a Reality: a ticker and a share count,
// with an optional fixed entry price. When Price is the zero Money, the entry
// price is resolved from market data at build time. Immutable once recorded
// in a snapshot.
type Purchase struct {
	Ticker string   `json:"ticker"`
	Shares Quantity `json:"shares"`
	Price  Money    `json:"price,omitzero"`
}

// HasPrice reports whether the purchase carries a fixed entry price.
func (p Purchase) HasPrice() bool { return !p.Price.IsZero() }

// Validate checks the purchase is well formed.
func (p Purchase) Validate() error {
	if !validTicker(p.Ticker) {
		return fmt.Errorf("purchase has invalid ticker %q", p.Ticker)
	}
	if !p.Shares.IsPositive() {
		return fmt.Errorf("purchase of %q has non-positive shares %s", p.Ticker, p.Shares)
	}
	return nil
}

// Snapshot is the portfolio's computed state on one trading day.
//
// TotalValue = Cash + MarketValue, always. PriceStale marks snapshots on a
// synthesized business-day calendar, when no ticker had data for the range.
type Snapshot struct {
	Date        Date                `json:"date"`
	Cash        Money               `json:"cash"`
	Holdings    map[string]Quantity `json:"holdings"`
	MarketValue Money               `json:"market_value"`
	TotalValue  Money               `json:"total_value"`
	PriceStale  bool                `json:"price_stale,omitempty"`
}

// CloneHoldings returns an independent copy of the holdings map.
func (s Snapshot) CloneHoldings() map[string]Quantity {
	return cloneHoldings(s.Holdings)
}

// Reality is a user-defined hypothetical portfolio timeline with explicit
// starting conditions. It is owned exclusively by the Store; engine
// operations receive copies or read-only views.
type Reality struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`
	StartDate       Date         `json:"start_date"`
	StartingCash    Money        `json:"starting_cash"`
	Purchases       []Purchase   `json:"purchases"`
	ScenarioType    ScenarioType `json:"scenario_type"`
	Snapshots       []Snapshot   `json:"snapshots"`
	CreatedAt       time.Time    `json:"created_at"`
	LastRefreshedAt time.Time    `json:"last_refreshed_at,omitzero"`
}

// Validate checks the construction inputs of a Reality, before any market
// data is involved.
func (r *Reality) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("reality needs a name")
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("reality %q needs a start date", r.Name)
	}
	if r.StartDate.After(Today()) {
		return fmt.Errorf("reality %q starts in the future (%s)", r.Name, r.StartDate)
	}
	if !r.StartingCash.IsPositive() {
		return fmt.Errorf("reality %q needs positive starting cash", r.Name)
	}
	if !ValidScenarioType(r.ScenarioType) {
		return fmt.Errorf("reality %q: unknown scenario type %q", r.Name, r.ScenarioType)
	}
	for _, p := range r.Purchases {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("reality %q: %w", r.Name, err)
		}
	}
	return nil
}

// CurrentValue returns the total value on the latest snapshot, or the zero
// Money if no snapshot was computed yet.
func (r *Reality) CurrentValue() Money {
	if len(r.Snapshots) == 0 {
		return Money{}
	}
	return r.Snapshots[len(r.Snapshots)-1].TotalValue
}

// Gain returns the difference between the current value and the starting cash.
func (r *Reality) Gain() Money {
	if len(r.Snapshots) == 0 {
		return Money{}
	}
	return r.CurrentValue().Sub(r.StartingCash)
}

// Tickers returns the sorted set of tickers involved in the purchases.
func (r *Reality) Tickers() []string {
	set := map[string]bool{}
	for _, p := range r.Purchases {
		set[p.Ticker] = true
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Modification is a single hypothetical trade action inserted into a history.
// Shares is used by buy/sell; Weight (a 0..1 fraction of the portfolio) is
// used by reallocate.
type Modification struct {
	Date      Date     `json:"date"`
	Action    Action   `json:"action"`
	Ticker    string   `json:"ticker,omitempty"`
	Shares    Quantity `json:"shares,omitzero"`
	Weight    float64  `json:"weight,omitempty"`
	Rationale string   `json:"rationale,omitempty"`
	Source    Source   `json:"source"`
}

// TradeEvent is one concrete cash/share movement derived from applying a
// Modification against actual price data.
type TradeEvent struct {
	Date   Date     `json:"date"`
	Action Action   `json:"action"`
	Ticker string   `json:"ticker"`
	Shares Quantity `json:"shares"`
	Price  Money    `json:"price"`
	Amount Money    `json:"amount"`
}

// History is a baseline timeline plus a set of modifications producing a
// derived alternate timeline. A History without modifications is
// definitionally identical to its baseline.
type History struct {
	ID               string         `json:"id"`
	BaseReality      string         `json:"base_reality"`
	Modifications    []Modification `json:"modifications"`
	Events           []TradeEvent   `json:"events,omitempty"`
	DivergencePoints []Date         `json:"divergence_points,omitempty"`
	Snapshots        []Snapshot     `json:"snapshots"`
	CreatedAt        time.Time      `json:"created_at"`
}

// CurrentValue returns the total value on the latest snapshot.
func (h *History) CurrentValue() Money {
	if len(h.Snapshots) == 0 {
		return Money{}
	}
	return h.Snapshots[len(h.Snapshots)-1].TotalValue
}

// ProjectionCase is one of the three forward looking cases.
type ProjectionCase string

const (
	CaseBull ProjectionCase = "bull"
	CaseBear ProjectionCase = "bear"
	CaseBase ProjectionCase = "base"
)

// ProjectionCases lists the three cases in their conventional order.
var ProjectionCases = []ProjectionCase{CaseBull, CaseBase, CaseBear}

// ProjectionSource tells whether a scenario came from the model or from the
// deterministic fallback.
type ProjectionSource string

const (
	SourceLLM      ProjectionSource = "llm"
	SourceFallback ProjectionSource = "fallback"
)

// ProjectionScenario is a forward-looking trajectory for one case.
// ProjectedValues is aligned index-by-index with HorizonDates.
type ProjectionScenario struct {
	Case            ProjectionCase   `json:"case"`
	HorizonDates    []Date           `json:"horizon_dates"`
	ProjectedValues []Money          `json:"projected_values"`
	Assumptions     string           `json:"assumptions,omitempty"`
	Source          ProjectionSource `json:"source"`
}

// validTicker accepts plausible exchange symbols: 1 to 10 upper-case letters,
// digits, dot or dash (covers BRK.B, BTC-USD).
func validTicker(s string) bool {
	if len(s) == 0 || len(s) > 10 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-':
		default:
			return false
		}
	}
	return true
}
