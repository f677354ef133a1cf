package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateProduct = errors.New("duplicate product id in catalog")
	ErrInvalidProduct   = errors.New("invalid catalog product")
)

// Product is a static catalog entry. It never changes after the catalog is built.
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Unit  string          `json:"unit"`
}

// Catalog is the ordered, read-only product list fixed at startup.
type Catalog struct {
	products []Product
	byID     map[string]int
}

func NewCatalog(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("%w: product %q needs id and name", ErrInvalidProduct, p.ID)
		}
		if !p.Price.IsPositive() {
			return nil, fmt.Errorf("%w: product %q price must be positive", ErrInvalidProduct, p.ID)
		}
		if _, exists := c.byID[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProduct, p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Lookup returns the product with the given id.
func (c *Catalog) Lookup(id string) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Products returns a copy of the catalog in declared order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Len() int {
	return len(c.products)
}

// DefaultProducts is the built-in catalog used when no catalog database is configured.
func DefaultProducts() []Product {
	return []Product{
		{ID: "p1", Name: "Verified Carbon Offset", Price: decimal.NewFromInt(10), Unit: "tonne CO2e"},
		{ID: "p2", Name: "Renewable Energy Certificate", Price: decimal.NewFromInt(8), Unit: "MWh"},
		{ID: "p3", Name: "Plastic Recovery Credit", Price: decimal.RequireFromString("4.50"), Unit: "kg"},
		{ID: "p4", Name: "Water Restoration Credit", Price: decimal.RequireFromString("2.25"), Unit: "m3"},
		{ID: "p5", Name: "Biodiversity Unit", Price: decimal.NewFromInt(25), Unit: "hectare"},
	}
}
