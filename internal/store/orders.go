package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/salesquery/salesquery/internal/sales"
)

const insertBatchSize = 500

// QueryResult is a fully materialized result set.
type QueryResult struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
}

type OrdersRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewOrdersRepository(db *sql.DB, dialect Dialect) *OrdersRepository {
	return &OrdersRepository{db: db, dialect: dialect}
}

func (r *OrdersRepository) Dialect() Dialect {
	return r.dialect
}

func (r *OrdersRepository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s db: %w", r.dialect.Driver, err)
	}
	return nil
}

// ReplaceOrders drops and recreates the orders table and inserts every order
// inside a single transaction.
func (r *OrdersRepository) ReplaceOrders(ctx context.Context, orders []sales.Order) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+sales.TableName); err != nil {
		return 0, fmt.Errorf("drop orders table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sales.CreateTableSQL()); err != nil {
		return 0, fmt.Errorf("create orders table: %w", err)
	}

	var inserted int64
	for start := 0; start < len(orders); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(orders) {
			end = len(orders)
		}
		batch := orders[start:end]
		query, args := r.insertStatement(batch)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("insert orders %d-%d: %w", start, end-1, err)
		}
		inserted += int64(len(batch))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

func (r *OrdersRepository) insertStatement(batch []sales.Order) (string, []any) {
	width := len(sales.Columns)
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sales.TableName)
	b.WriteString(" (")
	b.WriteString(strings.Join(sales.ColumnNames(), ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(batch)*width)
	for i, order := range batch {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		b.WriteString(r.dialect.Placeholders(i*width, width))
		b.WriteString(")")
		args = append(args, order.Values()...)
	}
	return b.String(), args
}

// DistinctValues lists the distinct non-null values of a catalogue column in
// ascending order. limit <= 0 means no cap.
func (r *OrdersRepository) DistinctValues(ctx context.Context, column string, limit int) ([]string, error) {
	col, ok := sales.LookupColumn(column)
	if !ok {
		return nil, fmt.Errorf("unknown orders column %q", column)
	}

	query := fmt.Sprintf(`SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL ORDER BY %[1]s`, col.Name, sales.TableName)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query distinct %s: %w", col.Name, err)
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var value any
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan distinct %s: %w", col.Name, err)
		}
		values = append(values, FormatValue(normalizeValue(value)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return values, nil
}

// Query runs sqlText inside a read-only transaction and materializes at most
// rowLimit rows (rowLimit <= 0 means all rows). Writes fail at the database.
func (r *OrdersRepository) Query(ctx context.Context, sqlText string, rowLimit int) (QueryResult, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return QueryResult{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// SQLite drivers ignore TxOptions.ReadOnly; query_only is per connection
	// and must be cleared before the connection returns to the pool.
	if r.dialect.Driver == DriverSQLite {
		if _, err := conn.ExecContext(ctx, `PRAGMA query_only = ON`); err != nil {
			return QueryResult{}, fmt.Errorf("enable query_only: %w", err)
		}
		defer func() { _, _ = conn.ExecContext(context.Background(), `PRAGMA query_only = OFF`) }()
	}

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: r.dialect.Driver != DriverSQLite})
	if err != nil {
		return QueryResult{}, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return QueryResult{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("read columns: %w", err)
	}

	result := QueryResult{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if rowLimit > 0 && len(result.Rows) >= rowLimit {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return QueryResult{}, fmt.Errorf("scan row: %w", err)
		}
		for i := range values {
			values[i] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *OrdersRepository) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+sales.TableName).Scan(&count); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case time.Time:
		if typed.Hour() == 0 && typed.Minute() == 0 && typed.Second() == 0 && typed.Nanosecond() == 0 {
			return typed.Format("2006-01-02")
		}
		return typed.UTC().Format(time.RFC3339)
	default:
		return value
	}
}

// FormatValue renders a scanned value for prompts and tables.
func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case string:
		return typed
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.4f", typed), "0"), ".")
	case float32:
		return FormatValue(float64(typed))
	default:
		return fmt.Sprint(typed)
	}
}
