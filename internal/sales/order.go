package sales

import (
	"fmt"
	"strings"
)

// TableName is the relational table that holds the order lines.
const TableName = "orders"

// Order is one denormalized sales-order line as it appears in the sales CSV.
type Order struct {
	OrderID          *string
	OrderNumber      int64
	QuantityOrdered  int64
	PriceEach        float64
	OrderLineNumber  int64
	Sales            float64
	OrderDate        string
	Status           string
	QtrID            int64
	MonthID          int64
	YearID           int64
	ProductLine      string
	MSRP             float64
	ProductCode      string
	CustomerName     string
	Phone            *string
	AddressLine1     *string
	AddressLine2     *string
	City             *string
	State            *string
	PostalCode       *string
	Country          *string
	Territory        *string
	ContactLastName  *string
	ContactFirstName *string
	DealSize         *string
}

type ColumnKind string

const (
	KindString  ColumnKind = "string"
	KindInteger ColumnKind = "integer"
	KindFloat   ColumnKind = "float"
	KindDate    ColumnKind = "date"
)

type Column struct {
	Name        string     `json:"name"`
	Kind        ColumnKind `json:"kind"`
	SQLType     string     `json:"sql_type"`
	Nullable    bool       `json:"nullable"`
	Description string     `json:"description"`
}

// Columns is the ordered catalogue of the orders table. DDL, CSV mapping and
// prompts are all derived from it.
var Columns = []Column{
	{Name: "ORDERID", Kind: KindString, SQLType: "VARCHAR(36)", Nullable: true, Description: "Unique identifier of the order line (UUID)"},
	{Name: "ORDERNUMBER", Kind: KindInteger, SQLType: "INTEGER", Description: "Order number shared by all lines of one order"},
	{Name: "QUANTITYORDERED", Kind: KindInteger, SQLType: "INTEGER", Description: "Number of units ordered"},
	{Name: "PRICEEACH", Kind: KindFloat, SQLType: "DOUBLE PRECISION", Description: "Unit price"},
	{Name: "ORDERLINENUMBER", Kind: KindInteger, SQLType: "INTEGER", Description: "Line number within the order"},
	{Name: "SALES", Kind: KindFloat, SQLType: "DOUBLE PRECISION", Description: "Total sales amount of the line"},
	{Name: "ORDERDATE", Kind: KindDate, SQLType: "DATE", Description: "Date the order was placed (YYYY-MM-DD)"},
	{Name: "STATUS", Kind: KindString, SQLType: "VARCHAR(20)", Description: "Order status such as Shipped, Cancelled, On Hold, Disputed, In Process, Resolved"},
	{Name: "QTR_ID", Kind: KindInteger, SQLType: "INTEGER", Description: "Quarter of the order date (1-4)"},
	{Name: "MONTH_ID", Kind: KindInteger, SQLType: "INTEGER", Description: "Month of the order date (1-12)"},
	{Name: "YEAR_ID", Kind: KindInteger, SQLType: "INTEGER", Description: "Year of the order date"},
	{Name: "PRODUCTLINE", Kind: KindString, SQLType: "VARCHAR(50)", Description: "Product line such as Classic Cars, Motorcycles, Planes, Ships, Trains, Trucks and Buses, Vintage Cars"},
	{Name: "MSRP", Kind: KindFloat, SQLType: "DOUBLE PRECISION", Description: "Manufacturer suggested retail price"},
	{Name: "PRODUCTCODE", Kind: KindString, SQLType: "VARCHAR(20)", Description: "Product code"},
	{Name: "CUSTOMERNAME", Kind: KindString, SQLType: "VARCHAR(100)", Description: "Customer company name"},
	{Name: "PHONE", Kind: KindString, SQLType: "VARCHAR(20)", Nullable: true, Description: "Customer phone number"},
	{Name: "ADDRESSLINE1", Kind: KindString, SQLType: "VARCHAR(100)", Nullable: true, Description: "Customer address line 1"},
	{Name: "ADDRESSLINE2", Kind: KindString, SQLType: "VARCHAR(100)", Nullable: true, Description: "Customer address line 2"},
	{Name: "CITY", Kind: KindString, SQLType: "VARCHAR(50)", Nullable: true, Description: "Customer city"},
	{Name: "STATE", Kind: KindString, SQLType: "VARCHAR(50)", Nullable: true, Description: "Customer state or province"},
	{Name: "POSTALCODE", Kind: KindString, SQLType: "VARCHAR(20)", Nullable: true, Description: "Customer postal code"},
	{Name: "COUNTRY", Kind: KindString, SQLType: "VARCHAR(50)", Nullable: true, Description: "Customer country"},
	{Name: "TERRITORY", Kind: KindString, SQLType: "VARCHAR(50)", Nullable: true, Description: "Sales territory such as NA, EMEA, APAC, Japan"},
	{Name: "CONTACTLASTNAME", Kind: KindString, SQLType: "VARCHAR(50)", Nullable: true, Description: "Last name of the customer contact"},
	{Name: "CONTACTFIRSTNAME", Kind: KindString, SQLType: "VARCHAR(50)", Nullable: true, Description: "First name of the customer contact"},
	{Name: "DEALSIZE", Kind: KindString, SQLType: "VARCHAR(20)", Nullable: true, Description: "Deal size bucket: Small, Medium, Large"},
}

// ColumnNames returns the catalogue names in table order.
func ColumnNames() []string {
	names := make([]string, 0, len(Columns))
	for _, column := range Columns {
		names = append(names, column.Name)
	}
	return names
}

// LookupColumn resolves a column name case-insensitively.
func LookupColumn(name string) (Column, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for _, column := range Columns {
		if column.Name == normalized {
			return column, true
		}
	}
	return Column{}, false
}

// CreateTableSQL renders DDL for the orders table that SQLite, Postgres and
// MySQL all accept.
func CreateTableSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(TableName)
	b.WriteString(" (\n")
	for i, column := range Columns {
		b.WriteString("  ")
		b.WriteString(column.Name)
		b.WriteString(" ")
		b.WriteString(column.SQLType)
		if !column.Nullable {
			b.WriteString(" NOT NULL")
		}
		if i < len(Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// Values returns the order's fields in catalogue order, with nil for NULL.
func (o Order) Values() []any {
	return []any{
		nullable(o.OrderID),
		o.OrderNumber,
		o.QuantityOrdered,
		o.PriceEach,
		o.OrderLineNumber,
		o.Sales,
		o.OrderDate,
		o.Status,
		o.QtrID,
		o.MonthID,
		o.YearID,
		o.ProductLine,
		o.MSRP,
		o.ProductCode,
		o.CustomerName,
		nullable(o.Phone),
		nullable(o.AddressLine1),
		nullable(o.AddressLine2),
		nullable(o.City),
		nullable(o.State),
		nullable(o.PostalCode),
		nullable(o.Country),
		nullable(o.Territory),
		nullable(o.ContactLastName),
		nullable(o.ContactFirstName),
		nullable(o.DealSize),
	}
}

// SchemaDescription renders "NAME (type): description" lines for prompts.
func SchemaDescription() string {
	lines := make([]string, 0, len(Columns))
	for _, column := range Columns {
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", column.Name, column.Kind, column.Description))
	}
	return strings.Join(lines, "\n")
}

func nullable(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
