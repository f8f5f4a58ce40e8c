package nl2sql

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/salesquery/salesquery/internal/store"
)

const DefaultResultRowLimit = 200

// RenderTable lays rows out as an aligned text table. At most limit rows are
// printed; a trailing note records how many were left out.
func RenderTable(columns []string, rows [][]any, limit int) string {
	if limit <= 0 {
		limit = DefaultResultRowLimit
	}
	shown := rows
	if len(shown) > limit {
		shown = shown[:limit]
	}

	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetHeader(columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, row := range shown {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = store.FormatValue(value)
		}
		table.Append(cells)
	}
	table.Render()

	if omitted := len(rows) - len(shown); omitted > 0 {
		fmt.Fprintf(&b, "(%d more rows not shown)\n", omitted)
	}
	return b.String()
}

// RenderResult answers a dataframe question directly: a single value is
// returned as text, anything else as a table.
func RenderResult(columns []string, rows [][]any, limit int) string {
	switch {
	case len(rows) == 0:
		return noResultsText
	case len(rows) == 1 && len(columns) == 1:
		return store.FormatValue(rows[0][0])
	default:
		return RenderTable(columns, rows, limit)
	}
}
