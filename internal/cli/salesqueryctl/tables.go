package salesqueryctl

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

const maxQuestionWidth = 60

type historyEntry struct {
	QueryID    string    `json:"query_id"`
	Endpoint   string    `json:"endpoint"`
	Question   string    `json:"question"`
	RowCount   int       `json:"row_count"`
	Outcome    string    `json:"outcome"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

type schemaColumn struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	SQLType     string `json:"sql_type"`
	Nullable    bool   `json:"nullable"`
	Description string `json:"description"`
}

type schemaResponse struct {
	Table    string         `json:"table"`
	Loaded   bool           `json:"loaded"`
	RowCount int64          `json:"row_count"`
	Columns  []schemaColumn `json:"columns"`
}

func renderHistory(w io.Writer, entries []historyEntry) {
	table := newTable(w, []string{"CREATED", "ENGINE", "OUTCOME", "ROWS", "MS", "QUESTION"})
	for _, entry := range entries {
		table.Append([]string{
			entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			entry.Endpoint,
			entry.Outcome,
			strconv.Itoa(entry.RowCount),
			strconv.FormatInt(entry.DurationMs, 10),
			truncate(entry.Question, maxQuestionWidth),
		})
	}
	table.Render()
}

func renderSchema(w io.Writer, columns []schemaColumn) {
	table := newTable(w, []string{"COLUMN", "KIND", "SQL TYPE", "NULL", "DESCRIPTION"})
	for _, column := range columns {
		nullable := ""
		if column.Nullable {
			nullable = "yes"
		}
		table.Append([]string{column.Name, column.Kind, column.SQLType, nullable, column.Description})
	}
	table.Render()
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("  ")
	return table
}

func truncate(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width-3]) + "..."
}
