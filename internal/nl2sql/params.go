package nl2sql

import (
	"strings"

	"github.com/salesquery/salesquery/internal/sales"
)

const DefaultMaxParameterColumns = 5

// ParseParameterResponse reads a "NEEDED|COL1,COL2" or "NONE" reply. Unknown
// columns are dropped so only catalogue columns ever reach a query; the list
// is de-duplicated and capped at maxColumns (DefaultMaxParameterColumns when
// maxColumns <= 0).
func ParseParameterResponse(text string, maxColumns int) []string {
	if maxColumns <= 0 {
		maxColumns = DefaultMaxParameterColumns
	}
	trimmed := strings.Trim(strings.TrimSpace(text), "`")
	head, rest, found := strings.Cut(strings.TrimSpace(trimmed), "|")
	if !found || !strings.EqualFold(strings.TrimSpace(head), "NEEDED") {
		return nil
	}

	seen := map[string]struct{}{}
	var columns []string
	for _, raw := range strings.Split(rest, ",") {
		column, ok := sales.LookupColumn(raw)
		if !ok {
			continue
		}
		if _, dup := seen[column.Name]; dup {
			continue
		}
		seen[column.Name] = struct{}{}
		columns = append(columns, column.Name)
		if len(columns) == maxColumns {
			break
		}
	}
	return columns
}
