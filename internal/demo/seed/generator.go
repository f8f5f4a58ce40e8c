package seed

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/salesquery/salesquery/internal/sales"
)

const firstOrderNumber = 10100

type product struct {
	code string
	line string
	msrp float64
}

type customer struct {
	name      string
	phone     string
	address   string
	city      string
	state     string
	postal    string
	country   string
	territory string
	lastName  string
	firstName string
}

type location struct {
	city      string
	state     string
	postal    string
	country   string
	territory string
}

var productLines = []string{"Classic Cars", "Vintage Cars", "Motorcycles", "Trucks and Buses", "Planes", "Ships", "Trains"}

var locations = []location{
	{"NYC", "NY", "10022", "USA", "NA"},
	{"San Francisco", "CA", "94217", "USA", "NA"},
	{"Boston", "MA", "51247", "USA", "NA"},
	{"Vancouver", "BC", "V3F 2K1", "Canada", "NA"},
	{"Paris", "", "75508", "France", "EMEA"},
	{"Madrid", "", "28034", "Spain", "EMEA"},
	{"Frankfurt", "", "60528", "Germany", "EMEA"},
	{"London", "", "WX1 6LT", "UK", "EMEA"},
	{"Oulu", "", "90110", "Finland", "EMEA"},
	{"Melbourne", "Victoria", "3004", "Australia", "APAC"},
	{"Singapore", "", "079903", "Singapore", "APAC"},
	{"Tokyo", "Tokyo", "106-0032", "Japan", "Japan"},
}

var (
	companyPrefixes = []string{"Land of", "Mini", "Euro", "Classic", "Royal", "Diecast", "Toys of", "Corporate", "Collectable", "Auto"}
	companySuffixes = []string{"Toys Inc.", "Gifts", "Models", "Collectables", "Imports", "Replicas", "Shopping Channel", "Co.", "Ltd.", "Distributors"}
	lastNames       = []string{"Yu", "Henriot", "Da Cunha", "Young", "Brown", "Hirano", "Freyre", "Frick", "Nelson", "Ferguson", "Saveley", "Hernandez"}
	firstNames      = []string{"Kwai", "Paul", "Daniel", "Julie", "William", "Juri", "Diego", "Michael", "Susan", "Peter", "Mary", "Maria"}
	streets         = []string{"Long Airport Avenue", "rue de l'Abbaye", "Hauptstr.", "Kingsfordweg", "Berkeley Gardens Blvd", "Moss Street", "Ginza", "Monitor Way"}
)

// Generator produces deterministic synthetic sales orders shaped like the
// classic car sales sample export.
type Generator struct {
	rnd         *rand.Rand
	start       time.Time
	days        int
	products    []product
	customers   []customer
	orderNumber int64
}

func NewGenerator(seed int64, customers int, start, end time.Time) *Generator {
	rnd := rand.New(rand.NewSource(seed))
	g := &Generator{
		rnd:         rnd,
		start:       start.UTC().Truncate(24 * time.Hour),
		days:        int(end.Sub(start).Hours()/24) + 1,
		orderNumber: firstOrderNumber,
	}
	g.products = g.buildProducts()
	g.customers = g.buildCustomers(customers)
	return g
}

// Generate returns exactly rows order lines spread over whole orders.
func (g *Generator) Generate(rows int) []sales.Order {
	orders := make([]sales.Order, 0, rows)
	for len(orders) < rows {
		lines := g.NextOrder()
		if remaining := rows - len(orders); len(lines) > remaining {
			lines = lines[:remaining]
		}
		orders = append(orders, lines...)
	}
	return orders
}

// NextOrder returns all lines of the next order number.
func (g *Generator) NextOrder() []sales.Order {
	g.orderNumber++
	date := g.start.AddDate(0, 0, g.rnd.Intn(g.days))
	status := g.pickStatus(date)
	buyer := g.customers[g.rnd.Intn(len(g.customers))]
	lineCount := 1 + g.rnd.Intn(12)

	lines := make([]sales.Order, 0, lineCount)
	for line := 1; line <= lineCount; line++ {
		item := g.products[g.rnd.Intn(len(g.products))]
		quantity := int64(20 + g.rnd.Intn(51))
		price := round2(item.msrp * (0.75 + g.rnd.Float64()*0.35))
		total := round2(float64(quantity) * price)

		lines = append(lines, sales.Order{
			OrderID:          g.orderID(),
			OrderNumber:      g.orderNumber,
			QuantityOrdered:  quantity,
			PriceEach:        price,
			OrderLineNumber:  int64(line),
			Sales:            total,
			OrderDate:        date.Format("2006-01-02"),
			Status:           status,
			QtrID:            int64((date.Month()-1)/3 + 1),
			MonthID:          int64(date.Month()),
			YearID:           int64(date.Year()),
			ProductLine:      item.line,
			MSRP:             item.msrp,
			ProductCode:      item.code,
			CustomerName:     buyer.name,
			Phone:            optional(buyer.phone),
			AddressLine1:     optional(buyer.address),
			City:             optional(buyer.city),
			State:            optional(buyer.state),
			PostalCode:       optional(buyer.postal),
			Country:          optional(buyer.country),
			Territory:        optional(buyer.territory),
			ContactLastName:  optional(buyer.lastName),
			ContactFirstName: optional(buyer.firstName),
			DealSize:         optional(dealSize(total)),
		})
	}
	return lines
}

func (g *Generator) orderID() *string {
	id, err := uuid.NewRandomFromReader(g.rnd)
	if err != nil {
		return nil
	}
	value := id.String()
	return &value
}

// Recent orders are more likely to still be open.
func (g *Generator) pickStatus(date time.Time) string {
	end := g.start.AddDate(0, 0, g.days-1)
	if end.Sub(date) < 60*24*time.Hour && g.rnd.Intn(100) < 40 {
		return pickOne(g.rnd, []string{"In Process", "On Hold", "Disputed"})
	}
	p := g.rnd.Intn(100)
	switch {
	case p < 92:
		return "Shipped"
	case p < 95:
		return "Cancelled"
	default:
		return "Resolved"
	}
}

func (g *Generator) buildProducts() []product {
	products := make([]product, 0, len(productLines)*8)
	for i, line := range productLines {
		for j := 0; j < 8; j++ {
			products = append(products, product{
				code: fmt.Sprintf("S%d_%04d", 10+i*6, 1000+g.rnd.Intn(9000)),
				line: line,
				msrp: float64(35 + g.rnd.Intn(180)),
			})
		}
	}
	return products
}

func (g *Generator) buildCustomers(count int) []customer {
	customers := make([]customer, 0, count)
	seen := make(map[string]struct{}, count)
	for len(customers) < count {
		name := pickOne(g.rnd, companyPrefixes) + " " + pickOne(g.rnd, companySuffixes)
		if _, ok := seen[name]; ok {
			name = fmt.Sprintf("%s %d", name, len(customers)+1)
		}
		seen[name] = struct{}{}
		place := locations[g.rnd.Intn(len(locations))]
		customers = append(customers, customer{
			name:      name,
			phone:     fmt.Sprintf("%03d555%04d", 100+g.rnd.Intn(900), g.rnd.Intn(10000)),
			address:   fmt.Sprintf("%d %s", 1+g.rnd.Intn(999), pickOne(g.rnd, streets)),
			city:      place.city,
			state:     place.state,
			postal:    place.postal,
			country:   place.country,
			territory: place.territory,
			lastName:  pickOne(g.rnd, lastNames),
			firstName: pickOne(g.rnd, firstNames),
		})
	}
	return customers
}

func dealSize(total float64) string {
	switch {
	case total < 3000:
		return "Small"
	case total < 7000:
		return "Medium"
	default:
		return "Large"
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
