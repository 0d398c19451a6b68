package whatif

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

const modificationsTag = "modifications"

// planPrompt describes the baseline portfolio and asks for a structured
// modification plan.
func planPrompt(base *Reality, text string, from, to Date) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a portfolio counterfactual planner.\n")
	fmt.Fprintf(&sb, "The baseline portfolio %q started on %s with %s in cash.\n", base.Name, base.StartDate, base.StartingCash)
	fmt.Fprintf(&sb, "Initial purchases:\n")
	for _, p := range base.Purchases {
		fmt.Fprintf(&sb, "  - %s shares of %s\n", p.Shares, p.Ticker)
	}
	if len(base.Snapshots) > 0 {
		last := base.Snapshots[len(base.Snapshots)-1]
		fmt.Fprintf(&sb, "As of %s the portfolio is worth %s (%s in cash).\n", last.Date, last.TotalValue, last.Cash)
	}
	fmt.Fprintf(&sb, "\nThe user wants to explore this hypothetical change:\n%s\n\n", text)
	fmt.Fprintf(&sb, "Translate it into concrete trade modifications. Respond with a single\n")
	fmt.Fprintf(&sb, "<%s> block containing a JSON array of objects with fields:\n", modificationsTag)
	fmt.Fprintf(&sb, "  date (YYYY-MM-DD, between %s and %s),\n", from, to)
	fmt.Fprintf(&sb, "  action (buy, sell, hold or reallocate),\n")
	fmt.Fprintf(&sb, "  ticker (exchange symbol),\n")
	fmt.Fprintf(&sb, "  shares (positive number, for buy/sell),\n")
	fmt.Fprintf(&sb, "  weight (fraction between 0 and 1, for reallocate),\n")
	fmt.Fprintf(&sb, "  rationale (one short sentence).\n")
	fmt.Fprintf(&sb, "Nothing outside the <%s></%s> block is read.\n", modificationsTag, modificationsTag)
	return sb.String()
}

// PlanModifications delegates to a language model to translate free text into
// a modification list. The model is an untrusted producer: every candidate is
// validated against the Modification schema and the baseline's date range,
// invalid ones are dropped with a recorded warning. It fails with
// ErrPlanningUnavailable only when the model call errors or the response has
// no parseable structure.
func PlanModifications(ctx context.Context, model TextModel, base *Reality, text string) (mods []Modification, warnings []string, err error) {
	if base == nil || len(base.Snapshots) == 0 {
		return nil, nil, fmt.Errorf("baseline %q has no timeline to plan against", baseName(base))
	}
	if model == nil {
		return nil, nil, fmt.Errorf("no language model configured: %w", ErrPlanningUnavailable)
	}
	from := base.Snapshots[0].Date
	to := base.Snapshots[len(base.Snapshots)-1].Date

	raw, err := model.Ask(ctx, planPrompt(base, text, from, to))
	if err != nil {
		return nil, nil, fmt.Errorf("model call failed: %v: %w", err, ErrPlanningUnavailable)
	}

	candidates, err := parsePlannedModifications(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%v: %w", err, ErrPlanningUnavailable)
	}
	mods, warnings = FilterModifications(candidates, from, to)
	return mods, warnings, nil
}

// parsePlannedModifications extracts the tagged JSON plan from a raw model
// response.
func parsePlannedModifications(raw string) ([]Modification, error) {
	block, ok := extractTagged(raw, modificationsTag)
	if !ok {
		return nil, fmt.Errorf("no <%s> block in model response", modificationsTag)
	}
	var jobj any
	if err := json.Unmarshal([]byte(block), &jobj); err != nil {
		return nil, fmt.Errorf("plan is not valid JSON: %w", err)
	}
	// tolerate both a bare array and an object wrapping it
	jlist, ok := jobj.([]any)
	if !ok {
		items, err := jsonpath.Get("$."+modificationsTag+"[*]", jobj)
		if err != nil {
			return nil, fmt.Errorf("plan has no modification list: %w", err)
		}
		if jlist, ok = items.([]any); !ok {
			jlist = []any{items}
		}
	}

	mods := make([]Modification, 0, len(jlist))
	for _, item := range jlist {
		jmap, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var m Modification
		m.Source = LLM
		if s, ok := jmap["date"].(string); ok {
			m.Date, _ = ParseDate(s)
		}
		if s, ok := jmap["action"].(string); ok {
			m.Action = Action(strings.ToLower(strings.TrimSpace(s)))
		}
		if s, ok := jmap["ticker"].(string); ok {
			m.Ticker = strings.ToUpper(strings.TrimSpace(s))
		}
		if v, err := jnum(jmap["shares"]); err == nil {
			m.Shares = Q(v)
		}
		if v, err := jnum(jmap["weight"]); err == nil {
			m.Weight = v
		}
		if s, ok := jmap["rationale"].(string); ok {
			m.Rationale = s
		}
		mods = append(mods, m)
	}
	return mods, nil
}

// jnum reads a number from untrusted JSON, where it may show up as a float
// or as a formatted string.
func jnum(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		s := strings.ReplaceAll(t, ",", "")
		s = strings.TrimSpace(s)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("not a number: %v", v)
}
