package whatif

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"
)

// Scenario vocabulary understood by AlgorithmicTrades.
const (
	RotateIntoTech    = "rotate-into-tech"
	DollarCostAverage = "dollar-cost-average"
	TakeProfits       = "take-profits"
	DoubleDown        = "double-down"
)

// ScenarioConfig drives the rule-based modification generator.
type ScenarioConfig struct {
	Scenario string   `json:"scenario"`
	From     Date     `json:"from"`
	To       Date     `json:"to"`
	Ticker   string   `json:"ticker,omitempty"`
	Shares   Quantity `json:"shares,omitzero"`
}

func (c ScenarioConfig) validate(needTicker, needShares bool) error {
	if c.From.IsZero() || c.To.IsZero() || c.To.Before(c.From) {
		return fmt.Errorf("scenario %q needs a valid date range: %w", c.Scenario, ErrInvalidScenario)
	}
	if needTicker && !validTicker(c.Ticker) {
		return fmt.Errorf("scenario %q needs a ticker, got %q: %w", c.Scenario, c.Ticker, ErrInvalidScenario)
	}
	if needShares && !c.Shares.IsPositive() {
		return fmt.Errorf("scenario %q needs a positive share count: %w", c.Scenario, ErrInvalidScenario)
	}
	return nil
}

// AlgorithmicTrades maps a scenario name onto a fixed modification schedule.
// It is fully deterministic and makes no external calls.
func AlgorithmicTrades(cfg ScenarioConfig) ([]Modification, error) {
	switch cfg.Scenario {
	case RotateIntoTech:
		if err := cfg.validate(false, false); err != nil {
			return nil, err
		}
		ticker := cfg.Ticker
		if ticker == "" {
			ticker = "QQQ"
		}
		return []Modification{{
			Date:      cfg.From.NextBusinessDay(),
			Action:    Reallocate,
			Ticker:    ticker,
			Weight:    0.6,
			Rationale: fmt.Sprintf("rotate 60%% of the portfolio into %s", ticker),
			Source:    Algorithmic,
		}}, nil

	case DollarCostAverage:
		if err := cfg.validate(true, true); err != nil {
			return nil, err
		}
		var mods []Modification
		for _, on := range monthStarts(cfg.From, cfg.To, 1) {
			mods = append(mods, Modification{
				Date:      on,
				Action:    Buy,
				Ticker:    cfg.Ticker,
				Shares:    cfg.Shares,
				Rationale: fmt.Sprintf("monthly %s purchase of %s", cfg.Ticker, cfg.Shares),
				Source:    Algorithmic,
			})
		}
		return mods, nil

	case TakeProfits:
		if err := cfg.validate(true, true); err != nil {
			return nil, err
		}
		var mods []Modification
		for _, on := range monthStarts(cfg.From, cfg.To, 3) {
			mods = append(mods, Modification{
				Date:      on,
				Action:    Sell,
				Ticker:    cfg.Ticker,
				Shares:    cfg.Shares,
				Rationale: fmt.Sprintf("quarterly %s profit taking of %s shares", cfg.Ticker, cfg.Shares),
				Source:    Algorithmic,
			})
		}
		return mods, nil

	case DoubleDown:
		if err := cfg.validate(true, true); err != nil {
			return nil, err
		}
		mid := cfg.From.Add(cfg.From.Days(cfg.To) / 2).NextBusinessDay()
		return []Modification{{
			Date:      mid,
			Action:    Buy,
			Ticker:    cfg.Ticker,
			Shares:    cfg.Shares.Mul(Q(2)),
			Rationale: fmt.Sprintf("double down on %s mid-period", cfg.Ticker),
			Source:    Algorithmic,
		}}, nil
	}
	return nil, fmt.Errorf("unknown scenario %q: %w", cfg.Scenario, ErrInvalidScenario)
}

// monthStarts returns the first business day of every step-th month in
// [from, to], starting with from's month (or the next one when from's month
// start falls before from).
func monthStarts(from, to Date, step int) []Date {
	var days []Date
	y, m := from.Year(), from.Month()
	for {
		on := NewDate(y, m, 1)
		if on.Before(from) {
			on = from
		}
		on = on.NextBusinessDay()
		if on.After(to) {
			return days
		}
		days = append(days, on)
		m += time.Month(step)
	}
}

// ValidateModification checks one modification against the Modification
// schema and the [from, to] range of the history it targets.
func ValidateModification(m Modification, from, to Date) error {
	if m.Date.IsZero() || m.Date.Before(from) || m.Date.After(to) {
		return fmt.Errorf("modification date %s outside [%s, %s]", m.Date, from, to)
	}
	switch m.Action {
	case Buy, Sell:
		if !validTicker(m.Ticker) {
			return fmt.Errorf("%s modification has invalid ticker %q", m.Action, m.Ticker)
		}
		if !m.Shares.IsPositive() {
			return fmt.Errorf("%s %s modification needs positive shares, got %s", m.Action, m.Ticker, m.Shares)
		}
	case Reallocate:
		if !validTicker(m.Ticker) {
			return fmt.Errorf("reallocate modification has invalid ticker %q", m.Ticker)
		}
		if m.Weight <= 0 || m.Weight > 1 {
			return fmt.Errorf("reallocate %s modification needs a weight in (0, 1], got %v", m.Ticker, m.Weight)
		}
	case Hold:
		// nothing to check
	default:
		return fmt.Errorf("unknown action %q", m.Action)
	}
	return nil
}

// FilterModifications validates a batch and drops invalid items, returning
// the survivors and one warning per dropped item. Used for model-produced
// plans, where one bad suggestion should not void the whole plan.
func FilterModifications(mods []Modification, from, to Date) (kept []Modification, warnings []string) {
	for _, m := range mods {
		if err := ValidateModification(m, from, to); err != nil {
			warnings = append(warnings, err.Error())
			log.Printf("dropping modification: %v", err)
			continue
		}
		kept = append(kept, m)
	}
	return kept, warnings
}

// replay carries the portfolio state while folding modifications over a
// baseline timeline.
type replay struct {
	currency  string
	cash      Money
	holdings  map[string]Quantity
	book      priceBook
	lastPrice map[string]Money
	events    []TradeEvent
}

// priceOn resolves a ticker's price on a day: market close with
// carry-forward, falling back on the last price this replay has seen.
func (r *replay) priceOn(ticker string, on Date) (Money, bool) {
	if price, ok := r.book.asOf(ticker, on); ok {
		r.lastPrice[ticker] = price
		return price, true
	}
	price, ok := r.lastPrice[ticker]
	return price, ok
}

// marketValue values every held position on a day.
func (r *replay) marketValue(on Date) Money {
	mv := M(0, r.currency)
	for ticker, shares := range r.holdings {
		if price, ok := r.priceOn(ticker, on); ok {
			mv = mv.Add(price.Mul(shares))
		}
	}
	return mv
}

func (r *replay) record(on Date, action Action, ticker string, shares Quantity, price Money) {
	r.events = append(r.events, TradeEvent{
		Date: on, Action: action, Ticker: ticker,
		Shares: shares, Price: price, Amount: price.Mul(shares),
	})
}

func (r *replay) buy(on Date, ticker string, shares Quantity) error {
	price, ok := r.priceOn(ticker, on)
	if !ok {
		log.Printf("warning: no price for %q on %s, buy skipped", ticker, on)
		return nil
	}
	cost := price.Mul(shares)
	if r.cash.LessThan(cost) {
		return fmt.Errorf("buy %s %s on %s costs %s with only %s cash: %w", shares, ticker, on, cost, r.cash, ErrInsufficientFunds)
	}
	r.cash = r.cash.Sub(cost)
	r.holdings[ticker] = r.holdings[ticker].Add(shares)
	r.record(on, Buy, ticker, shares, price)
	return nil
}

func (r *replay) sell(on Date, ticker string, shares Quantity) error {
	held := r.holdings[ticker]
	if shares.GreaterThan(held) {
		return fmt.Errorf("sell %s %s on %s with only %s held: %w", shares, ticker, on, held, ErrOverdraftTrade)
	}
	price, ok := r.priceOn(ticker, on)
	if !ok {
		log.Printf("warning: no price for %q on %s, sell skipped", ticker, on)
		return nil
	}
	r.cash = r.cash.Add(price.Mul(shares))
	rest := held.Sub(shares)
	if rest.IsZero() {
		delete(r.holdings, ticker)
	} else {
		r.holdings[ticker] = rest
	}
	r.record(on, Sell, ticker, shares, price)
	return nil
}

// reallocate moves the portfolio toward holding `weight` of its total value
// in ticker: cash is spent first, then other positions are trimmed
// proportionally by value.
func (r *replay) reallocate(on Date, ticker string, weight float64) error {
	price, ok := r.priceOn(ticker, on)
	if !ok {
		log.Printf("warning: no price for %q on %s, reallocate skipped", ticker, on)
		return nil
	}
	total := r.cash.Add(r.marketValue(on))
	desired := total.Mul(Q(weight))
	current := price.Mul(r.holdings[ticker])

	if desired.LessThanOrEqual(current) {
		// trim the target back into cash
		excess := current.Sub(desired)
		return r.sell(on, ticker, excess.DivPrice(price))
	}

	need := desired.Sub(current)
	// raise what cash cannot cover by trimming the other positions
	// proportionally by value
	shortfall := need.Sub(r.cash)
	if shortfall.IsPositive() {
		others := r.marketValue(on).Sub(current)
		if others.IsPositive() {
			factor := Q(shortfall.Ratio(others))
			if factor.GreaterThan(Q(1)) {
				factor = Q(1)
			}
			for _, t := range sortedTickers(r.holdings) {
				if t == ticker {
					continue
				}
				if err := r.sell(on, t, r.holdings[t].Mul(factor)); err != nil {
					return err
				}
			}
		}
		if need.GreaterThan(r.cash) {
			need = r.cash // never overdraft on a reallocation
		}
	}
	return r.buy(on, ticker, need.DivPrice(price))
}

func (r *replay) execute(m Modification, on Date) error {
	switch m.Action {
	case Buy:
		return r.buy(on, m.Ticker, m.Shares)
	case Sell:
		return r.sell(on, m.Ticker, m.Shares)
	case Reallocate:
		return r.reallocate(on, m.Ticker, m.Weight)
	case Hold:
		return nil
	}
	return fmt.Errorf("unknown action %q", m.Action)
}

func sortedTickers(holdings map[string]Quantity) []string {
	out := make([]string, 0, len(holdings))
	for t := range holdings {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// ApplyModifications folds modifications chronologically over the baseline's
// snapshot sequence, replaying the valuation from the first affected date
// forward. Snapshots before the first modification date are copied unchanged.
//
// The fold is all-or-nothing: a sell for more shares than held fails with
// ErrOverdraftTrade and nothing is returned. Re-applying the same
// modifications to the same baseline with unchanged price data yields an
// identical History.
func ApplyModifications(ctx context.Context, src PriceSource, base *Reality, mods []Modification) (*History, error) {
	if base == nil || len(base.Snapshots) == 0 {
		return nil, fmt.Errorf("baseline %q has no snapshots to modify", baseName(base))
	}

	h := &History{
		BaseReality:   base.ID,
		Modifications: slices.Clone(mods),
		CreatedAt:     time.Now(),
	}
	if len(mods) == 0 {
		// definitionally identical to the baseline
		h.Snapshots = slices.Clone(base.Snapshots)
		return h, nil
	}

	from := base.Snapshots[0].Date
	to := base.Snapshots[len(base.Snapshots)-1].Date

	pending := slices.Clone(mods)
	slices.SortStableFunc(pending, func(a, b Modification) int { return a.Date.Compare(b.Date) })

	// Model-sourced items are dropped on validation failure, anything else
	// is fatal.
	valid := pending[:0]
	for _, m := range pending {
		if err := ValidateModification(m, from, to); err != nil {
			if m.Source == LLM {
				log.Printf("dropping model modification: %v", err)
				continue
			}
			return nil, fmt.Errorf("%v: %w", err, ErrInvalidScenario)
		}
		valid = append(valid, m)
	}
	pending = valid

	tickers := base.Tickers()
	for _, m := range pending {
		if m.Ticker != "" && !slices.Contains(tickers, m.Ticker) {
			tickers = append(tickers, m.Ticker)
		}
	}
	book, err := fetchPriceBook(ctx, NewCachedSource(src), tickers, base.StartDate, to)
	if err != nil {
		return nil, err
	}

	r := &replay{
		currency:  base.StartingCash.Currency(),
		book:      book,
		lastPrice: make(map[string]Money),
	}
	for _, p := range base.Purchases {
		if p.HasPrice() {
			r.lastPrice[p.Ticker] = p.Price
		}
	}

	var firstAffected Date
	if len(pending) > 0 {
		firstAffected = pending[0].Date
	}

	for i, s := range base.Snapshots {
		if len(pending) > 0 && s.Date.Before(firstAffected) {
			// untouched prefix, copied as-is
			h.Snapshots = append(h.Snapshots, s)
			continue
		}
		if r.holdings == nil {
			// state just before the first affected day
			prev := base.Snapshots[i]
			if i > 0 {
				prev = base.Snapshots[i-1]
			}
			r.cash = prev.Cash
			r.holdings = cloneHoldings(prev.Holdings)
		}

		// a modification dated on a non-trading day executes on the next
		// trading day
		for len(pending) > 0 && !pending[0].Date.After(s.Date) {
			m := pending[0]
			pending = pending[1:]
			if err := r.execute(m, s.Date); err != nil {
				return nil, err
			}
		}

		mv := r.marketValue(s.Date)
		h.Snapshots = append(h.Snapshots, Snapshot{
			Date:        s.Date,
			Cash:        r.cash,
			Holdings:    cloneHoldings(r.holdings),
			MarketValue: mv,
			TotalValue:  r.cash.Add(mv),
			PriceStale:  s.PriceStale,
		})
	}
	h.Events = r.events
	h.DivergencePoints = DivergencePoints(h.Snapshots, base.Snapshots, 0)
	return h, nil
}

func baseName(r *Reality) string {
	if r == nil {
		return "<nil>"
	}
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
