package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"github.com/salesquery/salesquery/internal/sales"
)

func TestOpenRequiresDSN(t *testing.T) {
	_, _, err := Open(context.Background(), DBConfig{Driver: DriverSQLite})
	if err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), DBConfig{Driver: "oracle", DSN: "x"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestDialectPlaceholders(t *testing.T) {
	pg, err := DialectFor("postgres")
	if err != nil {
		t.Fatalf("DialectFor() error = %v", err)
	}
	if got := pg.Placeholders(2, 3); got != "$3, $4, $5" {
		t.Fatalf("postgres Placeholders() = %q", got)
	}
	lite, err := DialectFor("sqlite")
	if err != nil {
		t.Fatalf("DialectFor() error = %v", err)
	}
	if got := lite.Placeholders(0, 2); got != "?, ?" {
		t.Fatalf("sqlite Placeholders() = %q", got)
	}
	if lite.Name != "SQLite" || pg.Name != "PostgreSQL" {
		t.Fatalf("unexpected dialect names %q %q", lite.Name, pg.Name)
	}
}

func TestCSVRoundTripsIntoSQLite(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteOrders(t)

	file, err := os.Open("../sales/testdata/orders.csv")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer func() { _ = file.Close() }()
	orders, err := sales.ParseCSV(file)
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}

	inserted, err := repo.ReplaceOrders(ctx, orders)
	if err != nil {
		t.Fatalf("ReplaceOrders() error = %v", err)
	}
	if inserted != int64(len(orders)) {
		t.Fatalf("inserted = %d, want %d", inserted, len(orders))
	}

	count, err := repo.CountOrders(ctx)
	if err != nil {
		t.Fatalf("CountOrders() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("CountOrders() = %d", count)
	}

	result, err := repo.Query(ctx, "SELECT ORDERNUMBER, CUSTOMERNAME, ORDERDATE, STATE, SALES FROM orders ORDER BY ORDERNUMBER", 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	wantColumns := []string{"ORDERNUMBER", "CUSTOMERNAME", "ORDERDATE", "STATE", "SALES"}
	if diff := cmp.Diff(wantColumns, result.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("len(rows) = %d", len(result.Rows))
	}
	first := result.Rows[0]
	if FormatValue(first[0]) != "10107" || first[1] != "Land of Toys Inc." || first[2] != "2003-02-24" {
		t.Fatalf("first row = %#v", first)
	}
	if first[3] != "NY" {
		t.Fatalf("STATE = %#v", first[3])
	}
	if result.Rows[1][3] != nil {
		t.Fatalf("empty STATE should round-trip as NULL, got %#v", result.Rows[1][3])
	}

	// A second load replaces rather than appends.
	if _, err := repo.ReplaceOrders(ctx, orders[:1]); err != nil {
		t.Fatalf("ReplaceOrders() second load error = %v", err)
	}
	count, err = repo.CountOrders(ctx)
	if err != nil {
		t.Fatalf("CountOrders() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("CountOrders() after replace = %d, want 1", count)
	}
}

func TestReplaceOrdersInsertsInBatches(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteOrders(t)

	orders := make([]sales.Order, insertBatchSize*2+7)
	for i := range orders {
		orders[i] = sales.Order{
			OrderNumber:  int64(i + 1),
			OrderDate:    "2004-01-01",
			Status:       "Shipped",
			ProductLine:  "Ships",
			ProductCode:  "S1",
			CustomerName: "Acme",
		}
	}
	inserted, err := repo.ReplaceOrders(ctx, orders)
	if err != nil {
		t.Fatalf("ReplaceOrders() error = %v", err)
	}
	if inserted != int64(len(orders)) {
		t.Fatalf("inserted = %d, want %d", inserted, len(orders))
	}
}

func TestDistinctValuesAndRowLimit(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteOrders(t)
	city := "Paris"
	orders := []sales.Order{
		{OrderNumber: 1, OrderDate: "2004-01-01", Status: "Shipped", ProductLine: "Ships", ProductCode: "S1", CustomerName: "A", City: &city},
		{OrderNumber: 2, OrderDate: "2004-01-02", Status: "Cancelled", ProductLine: "Planes", ProductCode: "S2", CustomerName: "B"},
		{OrderNumber: 3, OrderDate: "2004-01-03", Status: "Shipped", ProductLine: "Cars", ProductCode: "S3", CustomerName: "C"},
	}
	if _, err := repo.ReplaceOrders(ctx, orders); err != nil {
		t.Fatalf("ReplaceOrders() error = %v", err)
	}

	values, err := repo.DistinctValues(ctx, "productline", 0)
	if err != nil {
		t.Fatalf("DistinctValues() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Cars", "Planes", "Ships"}, values); diff != "" {
		t.Fatalf("DistinctValues() mismatch (-want +got):\n%s", diff)
	}

	capped, err := repo.DistinctValues(ctx, "STATUS", 1)
	if err != nil {
		t.Fatalf("DistinctValues() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Cancelled"}, capped); diff != "" {
		t.Fatalf("capped DistinctValues() mismatch (-want +got):\n%s", diff)
	}

	cities, err := repo.DistinctValues(ctx, "CITY", 0)
	if err != nil {
		t.Fatalf("DistinctValues() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Paris"}, cities); diff != "" {
		t.Fatalf("NULLs should be skipped (-want +got):\n%s", diff)
	}

	if _, err := repo.DistinctValues(ctx, "ORDERNUMBER; DROP TABLE orders", 0); err == nil {
		t.Fatal("DistinctValues() should reject unknown columns")
	}

	limited, err := repo.Query(ctx, "SELECT ORDERNUMBER FROM orders ORDER BY ORDERNUMBER", 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(limited.Rows) != 2 || !limited.Truncated {
		t.Fatalf("Query() rows = %d truncated = %v", len(limited.Rows), limited.Truncated)
	}
}

func TestReplaceOrdersRollsBackOnInsertFailure(t *testing.T) {
	db, mock := newSQLMock(t)
	dialect, _ := DialectFor(DriverPostgres)
	repo := NewOrdersRepository(db, dialect)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS orders`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE orders (`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders (ORDERID, ORDERNUMBER`)).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.ReplaceOrders(context.Background(), []sales.Order{{OrderNumber: 1}})
	if err == nil {
		t.Fatal("ReplaceOrders() expected error")
	}
	assertSQLMock(t, mock)
}

func TestQueryNormalizesBytes(t *testing.T) {
	db, mock := newSQLMock(t)
	dialect, _ := DialectFor(DriverMySQL)
	repo := NewOrdersRepository(db, dialect)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT PRODUCTLINE, SUM(SALES) FROM orders GROUP BY PRODUCTLINE`)).
		WillReturnRows(sqlmock.NewRows([]string{"PRODUCTLINE", "total"}).
			AddRow([]byte("Ships"), 10.5).
			AddRow([]byte("Planes"), 3.0))
	mock.ExpectRollback()

	result, err := repo.Query(context.Background(), `SELECT PRODUCTLINE, SUM(SALES) FROM orders GROUP BY PRODUCTLINE`, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if result.Rows[0][0] != "Ships" {
		t.Fatalf("row[0][0] = %#v, want string", result.Rows[0][0])
	}
	if FormatValue(result.Rows[1][1]) != "3" || FormatValue(result.Rows[0][1]) != "10.5" {
		t.Fatalf("FormatValue() = %q %q", FormatValue(result.Rows[1][1]), FormatValue(result.Rows[0][1]))
	}
	assertSQLMock(t, mock)
}

func TestQueryRefusesWritesOnSQLite(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteOrders(t)
	orders := []sales.Order{
		{OrderNumber: 10100, QuantityOrdered: 30, PriceEach: 95.7, Sales: 2871, OrderDate: "2003-01-06", Status: "Shipped", ProductLine: "Vintage Cars", ProductCode: "S18_1749", CustomerName: "Online Diecast Creations Co."},
		{OrderNumber: 10101, QuantityOrdered: 25, PriceEach: 100, Sales: 2500, OrderDate: "2003-01-09", Status: "Shipped", ProductLine: "Ships", ProductCode: "S24_2011", CustomerName: "Blauer See Auto, Co."},
	}
	if _, err := repo.ReplaceOrders(ctx, orders); err != nil {
		t.Fatalf("ReplaceOrders() error = %v", err)
	}

	for _, statement := range []string{
		"WITH x AS (SELECT 1) UPDATE orders SET SALES = 0",
		"WITH x AS (SELECT 1) INSERT INTO orders (ORDERNUMBER) SELECT 1 FROM x",
		"DELETE FROM orders",
	} {
		if _, err := repo.Query(ctx, statement, 0); err == nil {
			t.Fatalf("Query(%q) expected error", statement)
		}
	}

	count, err := repo.CountOrders(ctx)
	if err != nil {
		t.Fatalf("CountOrders() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("CountOrders() = %d, want 2", count)
	}
	total, err := repo.Query(ctx, "SELECT SUM(SALES) FROM orders", 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got := FormatValue(total.Rows[0][0]); got != "5371" {
		t.Fatalf("SUM(SALES) = %s, want 5371", got)
	}
	// The pooled connection is writable again for the loader.
	if _, err := repo.ReplaceOrders(ctx, orders[:1]); err != nil {
		t.Fatalf("ReplaceOrders() after Query error = %v", err)
	}
}

func newSQLiteOrders(t *testing.T) *OrdersRepository {
	t.Helper()
	db, dialect, err := Open(context.Background(), DBConfig{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "nested", "sales.db"),
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewOrdersRepository(db, dialect)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
