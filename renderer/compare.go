package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/whatif"
	md "github.com/nao1215/markdown"
)

// maxComparisonRows keeps comparison tables readable, the full series is in
// the record files anyway.
const maxComparisonRows = 30

// ComparisonMarkdown renders a timeline comparison: cumulative divergence,
// inflection dates and a sampled per-date table.
func ComparisonMarkdown(labelA, labelB string, c whatif.Comparison) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("%s vs %s", labelA, labelB))
	doc.PlainText(fmt.Sprintf("Cumulative divergence: %s over %d aligned dates.",
		c.Cumulative.SignedString(), len(c.Deltas)))

	if len(c.DivergencePoints) > 0 {
		doc.H2("Divergence points")
		for _, on := range c.DivergencePoints {
			doc.BulletList(on.String())
		}
	}

	doc.H2("Per-date delta")
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight},
		Header:    []string{"Date", labelA, labelB, "Delta", "%"},
		Rows:      [][]string{},
	}
	step := 1
	if len(c.Deltas) > maxComparisonRows {
		step = len(c.Deltas) / maxComparisonRows
	}
	for i := 0; i < len(c.Deltas); i += step {
		d := c.Deltas[i]
		table.Rows = append(table.Rows, []string{
			d.Date.String(), d.A.String(), d.B.String(), d.Delta.SignedString(), d.Relative.SignedString(),
		})
	}
	doc.Table(table)
	return doc.String()
}
