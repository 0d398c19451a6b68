package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/whatif"
	md "github.com/nao1215/markdown"
)

// TimelineMarkdown renders a snapshot sequence as a value table.
func TimelineMarkdown(title string, snapshots []whatif.Snapshot) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(title)
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
		Header:    []string{"Date", "Cash", "Market Value", "Total"},
		Rows:      [][]string{},
	}
	for _, s := range snapshots {
		table.Rows = append(table.Rows, []string{
			s.Date.String(),
			s.Cash.String(),
			s.MarketValue.String(),
			s.TotalValue.String(),
		})
	}
	doc.Table(table)
	return doc.String()
}

// HistoryMarkdown renders an alternate history: its trades, divergence
// points and final value.
func HistoryMarkdown(h *whatif.History) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Alternate history %s", h.ID))
	doc.PlainText(fmt.Sprintf("Based on reality %s, current value %s.", h.BaseReality, h.CurrentValue()))

	if len(h.Events) > 0 {
		doc.H2("Trades")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
			Header:    []string{"Date", "Action", "Ticker", "Shares", "Price", "Amount"},
			Rows:      [][]string{},
		}
		for _, e := range h.Events {
			table.Rows = append(table.Rows, []string{
				e.Date.String(), string(e.Action), e.Ticker,
				e.Shares.String(), e.Price.String(), e.Amount.String(),
			})
		}
		doc.Table(table)
	}

	if len(h.Modifications) > 0 {
		doc.H2("Modifications")
		table := md.TableSet{
			Header: []string{"Date", "Action", "Ticker", "Rationale"},
			Rows:   [][]string{},
		}
		for _, m := range h.Modifications {
			table.Rows = append(table.Rows, []string{
				m.Date.String(), string(m.Action), m.Ticker, m.Rationale,
			})
		}
		doc.Table(table)
	}

	if len(h.DivergencePoints) > 0 {
		doc.H2("Divergence points")
		for _, on := range h.DivergencePoints {
			doc.BulletList(on.String())
		}
	}
	return doc.String()
}
