package nl2sql

import (
	"fmt"
	"strings"

	"github.com/salesquery/salesquery/internal/sales"
)

const noResultsText = "No results found."

// SQLSystemPrompt instructs the model to answer with a single query for the
// given SQL dialect ("SQLite", "PostgreSQL", "DuckDB", ...).
func SQLSystemPrompt(dialect string) string {
	return fmt.Sprintf(`You are a SQL expert. Given a question about sales data, generate a SQL query to answer it.
The database has a %s table with these columns:
%s

Return only the SQL query without any additional explanation.
Do not include `+"```sql"+` or any other code formatting.
Make sure to use proper SQL syntax for %s.
Only read data: never modify, drop or delete anything.
The data is very large, so do not write a query which returns all rows.`,
		sales.TableName, strings.Join(sales.ColumnNames(), ", "), dialect)
}

func ParameterCheckPrompt(question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The database has a %s table with these columns:\n", sales.TableName)
	for _, column := range sales.Columns {
		fmt.Fprintf(&b, "- %s: %s\n", column.Name, column.Description)
	}
	fmt.Fprintf(&b, `
Analyze this question: %q
If it needs any specific parameters (like year, product line, country, etc.) that are not explicitly provided,
list the required parameters and their corresponding table columns.
Consider the context and what would make a comprehensive analysis.

Format: If parameters needed, respond with:
NEEDED|column1,column2,...
If no parameters needed, respond with:
NONE`, question)
	return b.String()
}

// ParameterValues holds the distinct values offered to the model for one column.
type ParameterValues struct {
	Column string
	Values []string
}

// ParameterizedQuestion rewrites question so the model sees the values each
// parameter column can take.
func ParameterizedQuestion(question string, params []ParameterValues) string {
	available := make([]string, 0, len(params))
	columns := make([]string, 0, len(params))
	for _, param := range params {
		available = append(available, fmt.Sprintf("Available %s: %s", param.Column, strings.Join(param.Values, ", ")))
		columns = append(columns, param.Column)
	}
	return fmt.Sprintf("Given the following parameters:\n%s\n\n%s\nPlease provide a comprehensive analysis breaking down by %s.",
		strings.Join(available, ". "), question, strings.Join(columns, ", "))
}

func SQLPrompt(systemPrompt, question string) string {
	return fmt.Sprintf("%s\n\nQuestion: %s\nSQL query:", systemPrompt, question)
}

func SummaryPrompt(question, data string) string {
	return fmt.Sprintf(`Based on the following:
Question: %s
Data:
%s

Provide a clear, comprehensive analysis in proper Markdown format following these rules:
1. Start with a level 2 heading "## Analysis"
2. Use bullet points for listing key findings
3. If there are numerical comparisons, present them in a Markdown table
4. Use bold and italic text where appropriate for emphasis
5. If there are distinct categories or time periods, use level 3 headings
6. Include a brief summary at the end under a level 3 heading "### Summary"

Make sure to break down the information appropriately and focus on significant insights and patterns.`, question, data)
}

func NoDataPrompt(question, sqlText string) string {
	return fmt.Sprintf(`Based on the given inputs:
- **Question:** %q
- **SQL Query:** "%s (Generated by converting human language to SQL)"
- **Observation:** The query returned no data.

Generate a user-friendly response that clearly informs the user that no relevant data was found for their question.`, question, sqlText)
}
