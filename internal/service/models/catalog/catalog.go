package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrItemNotFound       = errors.New("item not found in restaurant")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidItem        = errors.New("invalid item")
	ErrAlreadyExists      = errors.New("already exists")
)

// Item is a priced, stock-tracked menu entry owned by a restaurant.
type Item struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Description       string          `json:"description"`
	AvailableQuantity int             `json:"available_quantity"`
}

// Restaurant owns its menu items.
type Restaurant struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Items       []Item `json:"items"`
}

// FindItem returns the item with the given id.
func (r Restaurant) FindItem(id int64) (Item, bool) {
	for _, item := range r.Items {
		if item.ID == id {
			return item, true
		}
	}

	return Item{}, false
}

// ItemPatch carries the fields of an item update. Nil fields are left as is.
type ItemPatch struct {
	Name              *string
	Price             *decimal.Decimal
	Description       *string
	AvailableQuantity *int
}

// Apply returns a copy of item with the patch applied.
func (p ItemPatch) Apply(item Item) Item {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.AvailableQuantity != nil {
		item.AvailableQuantity = *p.AvailableQuantity
	}

	return item
}

// Validate checks the invariants every stored item holds.
func (i Item) Validate() error {
	if i.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}
	if i.AvailableQuantity < 0 {
		return fmt.Errorf("%w: available_quantity must not be negative", ErrInvalidItem)
	}

	return nil
}
