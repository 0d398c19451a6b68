package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/whatif"
	md "github.com/nao1215/markdown"
)

// RealityMarkdown renders a full Reality report: identity, current value and
// the latest holdings.
func RealityMarkdown(r *whatif.Reality) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Reality %q (%s)", r.Name, r.ScenarioType))
	if r.Description != "" {
		doc.PlainText(r.Description)
	}
	doc.PlainText(fmt.Sprintf("Started %s with %s. Current value: %s (gain %s).",
		r.StartDate, r.StartingCash, r.CurrentValue(), r.Gain().SignedString()))

	if len(r.Snapshots) == 0 {
		doc.PlainText("No snapshots computed yet.")
		return doc.String()
	}
	last := r.Snapshots[len(r.Snapshots)-1]

	doc.H2(fmt.Sprintf("Holdings on %s", last.Date))
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Ticker", "Shares"},
		Rows:      [][]string{},
	}
	for _, p := range r.Purchases {
		table.Rows = append(table.Rows, []string{p.Ticker, last.Holdings[p.Ticker].String()})
	}
	doc.Table(table)

	doc.PlainText(fmt.Sprintf("Cash: %s, market value: %s, total: %s.",
		last.Cash, last.MarketValue, last.TotalValue))
	if last.PriceStale {
		doc.PlainText("Prices are stale: no market data covered the range.")
	}
	return doc.String()
}

// ListMarkdown renders the store index as a table.
func ListMarkdown(title string, entries []whatif.IndexEntry) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(title)
	if len(entries) == 0 {
		doc.PlainText("Nothing here yet.")
		return doc.String()
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight},
		Header:    []string{"ID", "Name", "Scenario", "Current Value"},
		Rows:      [][]string{},
	}
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = "(on " + e.BaseReality + ")"
		}
		table.Rows = append(table.Rows, []string{
			e.ID, name, string(e.ScenarioType), e.CurrentValue.String(),
		})
	}
	doc.Table(table)
	return doc.String()
}
