package store

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Dialect captures the few places where the supported SQL engines disagree.
type Dialect struct {
	Driver string
	// SQLDriverName is the name registered with database/sql.
	SQLDriverName string
	// Name is the human-facing engine name used in prompts.
	Name         string
	dollarParams bool
}

func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "":
		return Dialect{Driver: DriverSQLite, SQLDriverName: "sqlite", Name: "SQLite"}, nil
	case DriverPostgres, "pgx":
		return Dialect{Driver: DriverPostgres, SQLDriverName: "pgx", Name: "PostgreSQL", dollarParams: true}, nil
	case DriverMySQL:
		return Dialect{Driver: DriverMySQL, SQLDriverName: "mysql", Name: "MySQL"}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.dollarParams {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders renders count markers starting at offset+1, comma separated.
func (d Dialect) Placeholders(offset, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.Placeholder(offset + i + 1)
	}
	return strings.Join(parts, ", ")
}
