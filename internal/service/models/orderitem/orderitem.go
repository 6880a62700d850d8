package orderitem

import (
	"github.com/shopspring/decimal"
)

// OrderItem is a priced line of a placed order. It is a snapshot of the menu
// item at creation time and never changes afterwards.
type OrderItem struct {
	ItemID   int64           `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Line is a requested order line.
type Line struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}
