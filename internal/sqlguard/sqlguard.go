// Package sqlguard checks model-generated SQL before it reaches the database.
package sqlguard

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrEmpty              = errors.New("query is empty")
	ErrNotReadOnly        = errors.New("only SELECT or WITH queries are allowed")
	ErrMultipleStatements = errors.New("multiple statements are not allowed")
)

// DangerousKeywords are rejected wherever they appear as a keyword. A
// statement may start with WITH and still write, so write verbs are screened
// anywhere in the text.
var DangerousKeywords = []string{
	"DROP", "DELETE", "TRUNCATE", "ALTER", "MODIFY",
	"INSERT", "UPDATE", "MERGE", "UPSERT", "CREATE", "ATTACH", "DETACH",
	"PRAGMA", "VACUUM", "COPY", "INSTALL", "LOAD", "GRANT", "REVOKE",
}

type DangerousOperationError struct {
	Keyword string
}

func (e *DangerousOperationError) Error() string {
	return fmt.Sprintf("dangerous operation '%s' not allowed", e.Keyword)
}

// Validate reports why sqlText must not be executed, or nil.
func Validate(sqlText string) error {
	trimmed := stripTrailingSemicolons(strings.TrimSpace(sqlText))
	if trimmed == "" {
		return ErrEmpty
	}

	code, statements := scan(trimmed)
	words := strings.FieldsFunc(strings.ToUpper(code), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	for _, keyword := range DangerousKeywords {
		for _, word := range words {
			if word == keyword {
				return &DangerousOperationError{Keyword: keyword}
			}
		}
	}
	// REPLACE is also a string function; only REPLACE INTO writes.
	for i := 0; i+1 < len(words); i++ {
		if words[i] == "REPLACE" && words[i+1] == "INTO" {
			return &DangerousOperationError{Keyword: "REPLACE"}
		}
	}
	if statements > 1 {
		return ErrMultipleStatements
	}
	if len(words) == 0 || (words[0] != "SELECT" && words[0] != "WITH") {
		return ErrNotReadOnly
	}
	return nil
}

// Reason maps a Validate error to a short label for metrics and logs.
func Reason(err error) string {
	var dangerous *DangerousOperationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &dangerous):
		return "dangerous_keyword"
	case errors.Is(err, ErrEmpty):
		return "empty"
	case errors.Is(err, ErrMultipleStatements):
		return "multiple_statements"
	case errors.Is(err, ErrNotReadOnly):
		return "not_read_only"
	default:
		return "invalid"
	}
}

// Clean removes markdown code fences and trailing semicolons that models tend
// to wrap around SQL.
func Clean(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.Contains(trimmed, "```") {
		for _, fence := range []string{"```sql", "```SQL", "```sqlite", "```"} {
			trimmed = strings.ReplaceAll(trimmed, fence, "")
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	return stripTrailingSemicolons(trimmed)
}

func stripTrailingSemicolons(value string) string {
	trimmed := strings.TrimSpace(value)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

// scan blanks out string literals, quoted identifiers and comments, and counts
// the statements separated by semicolons.
func scan(sqlText string) (string, int) {
	var b strings.Builder
	statements := 1
	runes := []rune(sqlText)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' || r == '"' || r == '`':
			quote := r
			b.WriteRune(' ')
			for i++; i < len(runes); i++ {
				if runes[i] == quote {
					if i+1 < len(runes) && runes[i+1] == quote {
						i++
						continue
					}
					break
				}
			}
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			b.WriteRune(' ')
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
			b.WriteRune(' ')
		case r == ';':
			statements++
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), statements
}
