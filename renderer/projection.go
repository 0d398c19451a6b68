package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/whatif"
	md "github.com/nao1215/markdown"
)

// ProjectionsMarkdown renders the three scenarios side by side.
func ProjectionsMarkdown(pc whatif.PortfolioContext, scenarios []whatif.ProjectionScenario) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Projections for %q", pc.Name))
	doc.PlainText(fmt.Sprintf("Current value %s as of %s.", pc.CurrentValue, pc.AsOf))

	if len(scenarios) == 0 {
		doc.PlainText("No scenarios.")
		return doc.String()
	}

	header := []string{"Date"}
	for _, s := range scenarios {
		header = append(header, fmt.Sprintf("%s (%s)", s.Case, s.Source))
	}
	table := md.TableSet{Header: header, Rows: [][]string{}}
	for i, on := range scenarios[0].HorizonDates {
		row := []string{on.String()}
		for _, s := range scenarios {
			if i < len(s.ProjectedValues) {
				row = append(row, s.ProjectedValues[i].String())
			} else {
				row = append(row, "-")
			}
		}
		table.Rows = append(table.Rows, row)
	}
	doc.Table(table)

	doc.H2("Assumptions")
	for _, s := range scenarios {
		doc.PlainText(fmt.Sprintf("%s: %s", s.Case, s.Assumptions))
	}
	return doc.String()
}
