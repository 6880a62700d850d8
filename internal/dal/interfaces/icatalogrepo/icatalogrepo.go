package icatalogrepo

import (
	"context"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
)

// ICatalogRepository is the catalog store: restaurants, their items and stock.
type ICatalogRepository interface {
	// LockRestaurant takes exclusive ownership of the restaurant's stock for the
	// rest of the unit of work. Returns catalog.ErrRestaurantNotFound.
	LockRestaurant(ctx context.Context, id int64) error

	// GetRestaurant returns the restaurant with its items.
	GetRestaurant(ctx context.Context, id int64) (catalog.Restaurant, error)

	// ListRestaurants returns every restaurant with its items.
	ListRestaurants(ctx context.Context) ([]catalog.Restaurant, error)

	// ApplyStockDelta adds delta to the item's available quantity and returns the
	// updated item. A result below zero is rejected with catalog.ErrInsufficientStock.
	ApplyStockDelta(ctx context.Context, restaurantID, itemID int64, delta int) (catalog.Item, error)

	// CreateRestaurant stores a restaurant without items. A zero ID is assigned
	// as max(id)+1.
	CreateRestaurant(ctx context.Context, r catalog.Restaurant) (catalog.Restaurant, error)

	// AddItem stores an item under a restaurant. A zero ID is assigned as the
	// largest item id across all restaurants plus one.
	AddItem(ctx context.Context, restaurantID int64, item catalog.Item) (catalog.Item, error)

	// UpdateItem applies patch to an item and returns the stored result.
	UpdateItem(ctx context.Context, restaurantID, itemID int64, patch catalog.ItemPatch) (catalog.Item, error)
}
