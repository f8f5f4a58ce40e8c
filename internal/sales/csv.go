package sales

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var orderDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// ParseCSV decodes a sales CSV. Headers are matched case-insensitively against
// Columns and unknown headers are ignored.
func ParseCSV(r io.Reader) ([]Order, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		index[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	for _, column := range Columns {
		if _, ok := index[column.Name]; !ok && !column.Nullable {
			return nil, fmt.Errorf("csv header is missing required column %s", column.Name)
		}
	}

	orders := make([]Order, 0, 1024)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlankRecord(record) {
			continue
		}
		order, err := decodeOrder(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

type fieldReader struct {
	record []string
	index  map[string]int
	err    error
}

func (f *fieldReader) raw(name string) string {
	pos, ok := f.index[name]
	if !ok || pos >= len(f.record) {
		return ""
	}
	return strings.TrimSpace(f.record[pos])
}

func (f *fieldReader) required(name string) string {
	value := f.raw(name)
	if value == "" && f.err == nil {
		f.err = fmt.Errorf("column %s is required", name)
	}
	return value
}

func (f *fieldReader) optional(name string) *string {
	value := f.raw(name)
	if value == "" {
		return nil
	}
	return &value
}

func (f *fieldReader) integer(name string) int64 {
	raw := f.required(name)
	if f.err != nil {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err == nil {
		return value
	}
	// Exports from spreadsheets sometimes carry "42.0".
	asFloat, floatErr := strconv.ParseFloat(raw, 64)
	if floatErr != nil || asFloat != math.Trunc(asFloat) {
		f.err = fmt.Errorf("column %s: invalid integer %q", name, raw)
		return 0
	}
	return int64(asFloat)
}

func (f *fieldReader) float(name string) float64 {
	raw := f.required(name)
	if f.err != nil {
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		f.err = fmt.Errorf("column %s: invalid number %q", name, raw)
		return 0
	}
	return value
}

func (f *fieldReader) date(name string) string {
	raw := f.required(name)
	if f.err != nil {
		return ""
	}
	parsed, err := ParseOrderDate(raw)
	if err != nil {
		f.err = fmt.Errorf("column %s: %w", name, err)
		return ""
	}
	return parsed
}

func (f *fieldReader) orderID(name string) *string {
	raw := f.optional(name)
	if raw == nil || f.err != nil {
		return raw
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		f.err = fmt.Errorf("column %s: invalid uuid %q", name, *raw)
		return nil
	}
	normalized := id.String()
	return &normalized
}

func decodeOrder(record []string, index map[string]int) (Order, error) {
	f := &fieldReader{record: record, index: index}
	order := Order{
		OrderID:          f.orderID("ORDERID"),
		OrderNumber:      f.integer("ORDERNUMBER"),
		QuantityOrdered:  f.integer("QUANTITYORDERED"),
		PriceEach:        f.float("PRICEEACH"),
		OrderLineNumber:  f.integer("ORDERLINENUMBER"),
		Sales:            f.float("SALES"),
		OrderDate:        f.date("ORDERDATE"),
		Status:           f.required("STATUS"),
		QtrID:            f.integer("QTR_ID"),
		MonthID:          f.integer("MONTH_ID"),
		YearID:           f.integer("YEAR_ID"),
		ProductLine:      f.required("PRODUCTLINE"),
		MSRP:             f.float("MSRP"),
		ProductCode:      f.required("PRODUCTCODE"),
		CustomerName:     f.required("CUSTOMERNAME"),
		Phone:            f.optional("PHONE"),
		AddressLine1:     f.optional("ADDRESSLINE1"),
		AddressLine2:     f.optional("ADDRESSLINE2"),
		City:             f.optional("CITY"),
		State:            f.optional("STATE"),
		PostalCode:       f.optional("POSTALCODE"),
		Country:          f.optional("COUNTRY"),
		Territory:        f.optional("TERRITORY"),
		ContactLastName:  f.optional("CONTACTLASTNAME"),
		ContactFirstName: f.optional("CONTACTFIRSTNAME"),
		DealSize:         f.optional("DEALSIZE"),
	}
	if f.err != nil {
		return Order{}, f.err
	}
	return order, nil
}

// ParseOrderDate accepts the date layouts seen in sales exports and returns
// the date as YYYY-MM-DD.
func ParseOrderDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range orderDateLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			return parsed.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unsupported date %q", raw)
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// WriteCSV encodes orders with a header row in catalogue order. NULL fields
// are written as empty strings.
func WriteCSV(w io.Writer, orders []Order) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ColumnNames()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(Columns))
	for i, order := range orders {
		for j, value := range order.Values() {
			record[j] = formatCSVValue(value)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatCSVValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}
