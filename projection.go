package whatif

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const projectionTag = "projection"

// trailingWindow is the number of recent snapshots used to measure the
// portfolio's trailing daily growth rate.
const trailingWindow = 90

// Case-specific multipliers applied to the trailing growth rate by the
// deterministic fallback, bull > base > bear.
var fallbackMultipliers = map[ProjectionCase]float64{
	CaseBull: 1.6,
	CaseBase: 1.0,
	CaseBear: 0.4,
}

// Position is one held ticker in a PortfolioContext.
type Position struct {
	Ticker string
	Shares Quantity
}

// PortfolioContext is the current-composition summary consumed by projection
// prompts and by the fallback extrapolation.
type PortfolioContext struct {
	Name                string
	Currency            string
	AsOf                Date
	Cash                Money
	MarketValue         Money
	CurrentValue        Money
	Positions           []Position
	TrailingDailyGrowth float64
}

// GetPortfolioContext assembles the context from a computed Reality.
func GetPortfolioContext(r *Reality) PortfolioContext {
	pc := PortfolioContext{
		Name:     r.Name,
		Currency: r.StartingCash.Currency(),
	}
	if len(r.Snapshots) == 0 {
		return pc
	}
	last := r.Snapshots[len(r.Snapshots)-1]
	pc.AsOf = last.Date
	pc.Cash = last.Cash
	pc.MarketValue = last.MarketValue
	pc.CurrentValue = last.TotalValue
	for _, ticker := range sortedTickers(last.Holdings) {
		pc.Positions = append(pc.Positions, Position{Ticker: ticker, Shares: last.Holdings[ticker]})
	}
	pc.TrailingDailyGrowth = trailingGrowth(r.Snapshots, trailingWindow)
	return pc
}

// trailingGrowth measures the average daily growth rate over the last
// `window` snapshots (all of them, if fewer).
func trailingGrowth(snapshots []Snapshot, window int) float64 {
	if len(snapshots) < 2 {
		return 0
	}
	start := len(snapshots) - window
	if start < 0 {
		start = 0
	}
	first, last := snapshots[start], snapshots[len(snapshots)-1]
	v0, v1 := first.TotalValue.AsFloat(), last.TotalValue.AsFloat()
	days := first.Date.Days(last.Date)
	if v0 <= 0 || v1 <= 0 || days <= 0 {
		return 0
	}
	return math.Pow(v1/v0, 1/float64(days)) - 1
}

// HorizonDates returns `months` monthly horizon points after from, each on a
// business day.
func HorizonDates(from Date, months int) []Date {
	out := make([]Date, 0, months)
	for i := 1; i <= months; i++ {
		out = append(out, NewDate(from.Year(), from.Month()+time.Month(i), from.Day()).NextBusinessDay())
	}
	return out
}

// ProjectionPrompt builds the case-specific natural-language prompt embedding
// the portfolio context and the requested horizon.
func ProjectionPrompt(pc PortfolioContext, pcase ProjectionCase, horizon []Date) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a market scenario analyst.\n")
	fmt.Fprintf(&sb, "Portfolio %q as of %s is worth %s: %s in cash, %s in positions.\n",
		pc.Name, pc.AsOf, pc.CurrentValue, pc.Cash, pc.MarketValue)
	for _, p := range pc.Positions {
		fmt.Fprintf(&sb, "  - %s shares of %s\n", p.Shares, p.Ticker)
	}
	fmt.Fprintf(&sb, "\nProject the portfolio's total value in a %s scenario on these dates:\n", pcase)
	for _, on := range horizon {
		fmt.Fprintf(&sb, "  %s\n", on)
	}
	fmt.Fprintf(&sb, "\nRespond with a single <%s> block containing a JSON object:\n", projectionTag)
	fmt.Fprintf(&sb, "  values: array of exactly %d numbers in %s, aligned with the dates above,\n", len(horizon), pc.Currency)
	fmt.Fprintf(&sb, "  assumptions: one short paragraph naming the scenario's key assumptions.\n")
	fmt.Fprintf(&sb, "Nothing outside the <%s></%s> block is read.\n", projectionTag, projectionTag)
	return sb.String()
}

// ParseProjection extracts a ProjectionScenario from a raw model response.
// It fails closed: a missing tagged block, invalid JSON or a value count not
// matching the horizon is ErrParseFailure, never a guess.
func ParseProjection(raw string, pcase ProjectionCase, horizon []Date, currency string) (ProjectionScenario, error) {
	block, ok := extractTagged(raw, projectionTag)
	if !ok {
		return ProjectionScenario{}, fmt.Errorf("no <%s> block in %s response: %w", projectionTag, pcase, ErrParseFailure)
	}
	var body struct {
		Values      []json.Number `json:"values"`
		Assumptions string        `json:"assumptions"`
	}
	if err := json.Unmarshal([]byte(block), &body); err != nil {
		return ProjectionScenario{}, fmt.Errorf("%s projection is not valid JSON: %v: %w", pcase, err, ErrParseFailure)
	}
	if len(body.Values) != len(horizon) {
		return ProjectionScenario{}, fmt.Errorf("%s projection has %d values for %d dates: %w", pcase, len(body.Values), len(horizon), ErrParseFailure)
	}
	s := ProjectionScenario{
		Case:         pcase,
		HorizonDates: horizon,
		Assumptions:  body.Assumptions,
		Source:       SourceLLM,
	}
	for _, v := range body.Values {
		f, err := v.Float64()
		if err != nil {
			return ProjectionScenario{}, fmt.Errorf("%s projection has non-numeric value %q: %w", pcase, v, ErrParseFailure)
		}
		s.ProjectedValues = append(s.ProjectedValues, M(f, currency))
	}
	return s, nil
}

// FallbackProjection extrapolates one case deterministically from the
// trailing growth rate and the case multiplier.
func FallbackProjection(pc PortfolioContext, pcase ProjectionCase, horizon []Date) ProjectionScenario {
	mult := fallbackMultipliers[pcase]
	rate := pc.TrailingDailyGrowth * mult
	if rate < -0.5 {
		rate = -0.5
	}
	s := ProjectionScenario{
		Case:         pcase,
		HorizonDates: horizon,
		Source:       SourceFallback,
		Assumptions: fmt.Sprintf("deterministic extrapolation: trailing daily growth %.5f scaled by %.1f for the %s case",
			pc.TrailingDailyGrowth, mult, pcase),
	}
	current := pc.CurrentValue.AsFloat()
	for _, on := range horizon {
		days := pc.AsOf.Days(on)
		if days < 0 {
			days = 0
		}
		v := current * math.Pow(1+rate, float64(days))
		s.ProjectedValues = append(s.ProjectedValues, M(v, pc.Currency))
	}
	return s
}

// FallbackProjections returns the three deterministic scenarios.
func FallbackProjections(pc PortfolioContext, horizon []Date) []ProjectionScenario {
	out := make([]ProjectionScenario, 0, len(ProjectionCases))
	for _, pcase := range ProjectionCases {
		out = append(out, FallbackProjection(pc, pcase, horizon))
	}
	return out
}

// ProjectionsSync generates the three cases concurrently and blocks until all
// are done. Any model failure, parse failure or cancellation substitutes the
// deterministic fallback for that case, so the caller always receives exactly
// three scenarios, in bull, base, bear order.
func ProjectionsSync(ctx context.Context, model TextModel, pc PortfolioContext, horizon []Date) []ProjectionScenario {
	out := make([]ProjectionScenario, len(ProjectionCases))

	var g errgroup.Group
	for i, pcase := range ProjectionCases {
		g.Go(func() error {
			out[i] = projectCase(ctx, model, pc, pcase, horizon)
			return nil
		})
	}
	g.Wait()
	return out
}

// Projections is the asynchronous variant of ProjectionsSync, with identical
// semantics: the returned channel delivers the three scenarios once.
func Projections(ctx context.Context, model TextModel, pc PortfolioContext, horizon []Date) <-chan []ProjectionScenario {
	out := make(chan []ProjectionScenario, 1)
	go func() {
		out <- ProjectionsSync(ctx, model, pc, horizon)
		close(out)
	}()
	return out
}

func projectCase(ctx context.Context, model TextModel, pc PortfolioContext, pcase ProjectionCase, horizon []Date) ProjectionScenario {
	if model == nil {
		return FallbackProjection(pc, pcase, horizon)
	}
	raw, err := model.Ask(ctx, ProjectionPrompt(pc, pcase, horizon))
	if err != nil {
		log.Printf("%s projection falling back: %v", pcase, err)
		return FallbackProjection(pc, pcase, horizon)
	}
	s, err := ParseProjection(raw, pcase, horizon, pc.Currency)
	if err != nil {
		log.Printf("%s projection falling back: %v", pcase, err)
		return FallbackProjection(pc, pcase, horizon)
	}
	return s
}
