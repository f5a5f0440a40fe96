// Package render turns constraint result sets into tabular output.
package render

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/declareflow/declareflow/pkg/declare"
)

// Table renders a constraint set as a text table.
//
// Columns are {Type, Source, Target, Quantifier, Object Types, Min, Max};
// the Conformance column is appended only when at least one constraint in
// the set carries a non-nil conformance value. Downstream consumers rely on
// that column-presence rule.
func Table(set *declare.Set) string {
	tw := table.NewWriter()

	withConformance := set.HasConformance()

	header := table.Row{"Type", "Source", "Target", "Quantifier", "Object Types", "Min", "Max"}
	if withConformance {
		header = append(header, "Conformance")
	}
	tw.AppendHeader(header)

	for _, c := range set.Constraints {
		row := table.Row{
			string(c.Type),
			c.Source,
			c.Target,
			string(c.Quantifier),
			strings.Join(c.ObjectTypes, ", "),
			formatBound(c.Min),
			formatBound(c.Max),
		}
		if withConformance {
			row = append(row, formatConformance(c.Conformance))
		}
		tw.AppendRow(row)
	}

	return tw.Render()
}

// Columns returns the column ids the table carries for the given set, in
// order. Exposed so other renderers can honor the same presence rule.
func Columns(set *declare.Set) []string {
	cols := []string{"type", "source", "target", "quantifier", "object_types", "min", "max"}
	if set.HasConformance() {
		cols = append(cols, "conformance")
	}
	return cols
}

func formatBound(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func formatConformance(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.3f", *v)
}
