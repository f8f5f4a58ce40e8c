package sales

import (
	"bytes"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
)

type ParquetEncodeResult struct {
	Data        []byte
	RecordCount int64
	MinDate     string
	MaxDate     string
}

// parquetOrder keeps the upper-case column names so DuckDB sees the same
// identifiers as the relational table. ORDERDATE is a DATE (days since the
// Unix epoch) so date functions bind without casts.
type parquetOrder struct {
	OrderID          *string `parquet:"ORDERID,optional"`
	OrderNumber      int64   `parquet:"ORDERNUMBER"`
	QuantityOrdered  int64   `parquet:"QUANTITYORDERED"`
	PriceEach        float64 `parquet:"PRICEEACH"`
	OrderLineNumber  int64   `parquet:"ORDERLINENUMBER"`
	Sales            float64 `parquet:"SALES"`
	OrderDate        int32   `parquet:"ORDERDATE,date"`
	Status           string  `parquet:"STATUS"`
	QtrID            int64   `parquet:"QTR_ID"`
	MonthID          int64   `parquet:"MONTH_ID"`
	YearID           int64   `parquet:"YEAR_ID"`
	ProductLine      string  `parquet:"PRODUCTLINE"`
	MSRP             float64 `parquet:"MSRP"`
	ProductCode      string  `parquet:"PRODUCTCODE"`
	CustomerName     string  `parquet:"CUSTOMERNAME"`
	Phone            *string `parquet:"PHONE,optional"`
	AddressLine1     *string `parquet:"ADDRESSLINE1,optional"`
	AddressLine2     *string `parquet:"ADDRESSLINE2,optional"`
	City             *string `parquet:"CITY,optional"`
	State            *string `parquet:"STATE,optional"`
	PostalCode       *string `parquet:"POSTALCODE,optional"`
	Country          *string `parquet:"COUNTRY,optional"`
	Territory        *string `parquet:"TERRITORY,optional"`
	ContactLastName  *string `parquet:"CONTACTLASTNAME,optional"`
	ContactFirstName *string `parquet:"CONTACTFIRSTNAME,optional"`
	DealSize         *string `parquet:"DEALSIZE,optional"`
}

// EncodeParquet writes the orders as a single Parquet file.
func EncodeParquet(orders []Order) (ParquetEncodeResult, error) {
	if len(orders) == 0 {
		return ParquetEncodeResult{}, fmt.Errorf("orders are required")
	}

	rows := make([]parquetOrder, 0, len(orders))
	var minDate, maxDate string
	for _, order := range orders {
		row, err := toParquetOrder(order)
		if err != nil {
			return ParquetEncodeResult{}, err
		}
		rows = append(rows, row)
		if minDate == "" || order.OrderDate < minDate {
			minDate = order.OrderDate
		}
		if order.OrderDate > maxDate {
			maxDate = order.OrderDate
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetOrder](buf)
	if _, err := writer.Write(rows); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return ParquetEncodeResult{
		Data:        buf.Bytes(),
		RecordCount: int64(len(rows)),
		MinDate:     minDate,
		MaxDate:     maxDate,
	}, nil
}

func toParquetOrder(order Order) (parquetOrder, error) {
	date, err := time.Parse(time.DateOnly, order.OrderDate)
	if err != nil {
		return parquetOrder{}, fmt.Errorf("order %d: parse ORDERDATE %q: %w", order.OrderNumber, order.OrderDate, err)
	}
	return parquetOrder{
		OrderID:          order.OrderID,
		OrderNumber:      order.OrderNumber,
		QuantityOrdered:  order.QuantityOrdered,
		PriceEach:        order.PriceEach,
		OrderLineNumber:  order.OrderLineNumber,
		Sales:            order.Sales,
		OrderDate:        int32(date.Unix() / 86400),
		Status:           order.Status,
		QtrID:            order.QtrID,
		MonthID:          order.MonthID,
		YearID:           order.YearID,
		ProductLine:      order.ProductLine,
		MSRP:             order.MSRP,
		ProductCode:      order.ProductCode,
		CustomerName:     order.CustomerName,
		Phone:            order.Phone,
		AddressLine1:     order.AddressLine1,
		AddressLine2:     order.AddressLine2,
		City:             order.City,
		State:            order.State,
		PostalCode:       order.PostalCode,
		Country:          order.Country,
		Territory:        order.Territory,
		ContactLastName:  order.ContactLastName,
		ContactFirstName: order.ContactFirstName,
		DealSize:         order.DealSize,
	}, nil
}
