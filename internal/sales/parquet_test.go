package sales

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
)

func TestEncodeParquet(t *testing.T) {
	city := "NYC"
	orders := []Order{
		{OrderNumber: 1, OrderDate: "2004-05-01", Status: "Shipped", ProductLine: "Ships", CustomerName: "Acme", City: &city},
		{OrderNumber: 2, OrderDate: "2003-01-09", Status: "Cancelled", ProductLine: "Planes", CustomerName: "Globex"},
	}

	result, err := EncodeParquet(orders)
	if err != nil {
		t.Fatalf("EncodeParquet() error = %v", err)
	}
	if result.RecordCount != 2 {
		t.Fatalf("RecordCount = %d", result.RecordCount)
	}
	if result.MinDate != "2003-01-09" || result.MaxDate != "2004-05-01" {
		t.Fatalf("date range = %s..%s", result.MinDate, result.MaxDate)
	}

	reader := parquet.NewGenericReader[parquetOrder](bytes.NewReader(result.Data))
	defer func() { _ = reader.Close() }()
	rows := make([]parquetOrder, 2)
	count, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("reader.Read() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("read rows = %d", count)
	}
	if rows[0].City == nil || *rows[0].City != "NYC" {
		t.Fatalf("City = %v", rows[0].City)
	}
	if rows[1].City != nil {
		t.Fatalf("City = %q, want nil", *rows[1].City)
	}
	wantDays := int32(time.Date(2003, 1, 9, 0, 0, 0, 0, time.UTC).Unix() / 86400)
	if rows[1].OrderDate != wantDays {
		t.Fatalf("OrderDate = %d, want %d days", rows[1].OrderDate, wantDays)
	}
}

func TestEncodeParquetRejectsUnparsedDate(t *testing.T) {
	orders := []Order{{OrderNumber: 7, OrderDate: "2/24/2003 0:00", Status: "Shipped"}}
	if _, err := EncodeParquet(orders); err == nil || !strings.Contains(err.Error(), "ORDERDATE") {
		t.Fatalf("EncodeParquet() error = %v, want ORDERDATE parse error", err)
	}
}

func TestEncodeParquetRequiresOrders(t *testing.T) {
	if _, err := EncodeParquet(nil); err == nil {
		t.Fatal("EncodeParquet(nil) expected error")
	}
}

func TestCreateTableSQLCoversCatalogue(t *testing.T) {
	ddl := CreateTableSQL()
	for _, column := range Columns {
		if !strings.Contains(ddl, column.Name+" "+column.SQLType) {
			t.Fatalf("DDL missing %s:\n%s", column.Name, ddl)
		}
	}
	if !strings.Contains(ddl, "ORDERNUMBER INTEGER NOT NULL") {
		t.Fatalf("required columns should be NOT NULL:\n%s", ddl)
	}
	if strings.Contains(ddl, "PHONE VARCHAR(20) NOT NULL") {
		t.Fatalf("nullable columns should allow NULL:\n%s", ddl)
	}
}

func TestOrderValuesMatchCatalogue(t *testing.T) {
	values := Order{OrderNumber: 7}.Values()
	if len(values) != len(Columns) {
		t.Fatalf("len(Values()) = %d, want %d", len(values), len(Columns))
	}
	if values[0] != nil {
		t.Fatalf("ORDERID value = %v, want nil", values[0])
	}
	if values[1] != int64(7) {
		t.Fatalf("ORDERNUMBER value = %v", values[1])
	}
}

func TestLookupColumn(t *testing.T) {
	column, ok := LookupColumn(" productline ")
	if !ok || column.Name != "PRODUCTLINE" {
		t.Fatalf("LookupColumn() = %+v, %v", column, ok)
	}
	if _, ok := LookupColumn("orders; DROP TABLE orders"); ok {
		t.Fatal("LookupColumn() accepted unknown column")
	}
}
