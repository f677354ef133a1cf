package domain

import "github.com/shopspring/decimal"

type CartSnapshotItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CartSnapshot is the full cart state priced against the catalog, in catalog order.
type CartSnapshot struct {
	Items     []CartSnapshotItem `json:"items"`
	Total     decimal.Decimal    `json:"total"`
	ItemCount int                `json:"item_count"`
}

func (s *CartSnapshot) IsEmpty() bool {
	return len(s.Items) == 0
}
