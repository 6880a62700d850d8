package memory

import (
	"context"
	"fmt"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
)

// CatalogRepository is the in-memory catalog store.
type CatalogRepository struct {
	acc access
}

// NewCatalogRepository creates a catalog repository that commits each call.
func NewCatalogRepository(store *Store) *CatalogRepository {
	return &CatalogRepository{acc: direct{store: store}}
}

func findRestaurant(d *dataset, id int64) (int, error) {
	for i := range d.Restaurants {
		if d.Restaurants[i].ID == id {
			return i, nil
		}
	}

	return -1, fmt.Errorf("%w: id %d", catalog.ErrRestaurantNotFound, id)
}

func findItem(r *catalog.Restaurant, id int64) (int, error) {
	for i := range r.Items {
		if r.Items[i].ID == id {
			return i, nil
		}
	}

	return -1, fmt.Errorf("%w: item %d", catalog.ErrItemNotFound, id)
}

// LockRestaurant checks the restaurant exists. Exclusivity comes from the
// store lock held by the unit of work.
func (r *CatalogRepository) LockRestaurant(_ context.Context, id int64) error {
	return r.acc.read(func(d *dataset) error {
		_, err := findRestaurant(d, id)

		return err
	})
}

// GetRestaurant returns the restaurant with its items.
func (r *CatalogRepository) GetRestaurant(_ context.Context, id int64) (catalog.Restaurant, error) {
	var result catalog.Restaurant
	err := r.acc.read(func(d *dataset) error {
		i, err := findRestaurant(d, id)
		if err != nil {
			return err
		}
		result = cloneRestaurant(d.Restaurants[i])

		return nil
	})

	return result, err
}

// ListRestaurants returns every restaurant ordered as stored.
func (r *CatalogRepository) ListRestaurants(_ context.Context) ([]catalog.Restaurant, error) {
	var result []catalog.Restaurant
	err := r.acc.read(func(d *dataset) error {
		result = make([]catalog.Restaurant, 0, len(d.Restaurants))
		for _, rest := range d.Restaurants {
			result = append(result, cloneRestaurant(rest))
		}

		return nil
	})

	return result, err
}

// ApplyStockDelta adds delta to the item's available quantity.
func (r *CatalogRepository) ApplyStockDelta(
	_ context.Context,
	restaurantID, itemID int64,
	delta int,
) (catalog.Item, error) {
	var result catalog.Item
	err := r.acc.write(func(d *dataset) error {
		ri, err := findRestaurant(d, restaurantID)
		if err != nil {
			return err
		}
		rest := &d.Restaurants[ri]
		ii, err := findItem(rest, itemID)
		if err != nil {
			return err
		}

		item := &rest.Items[ii]
		if item.AvailableQuantity+delta < 0 {
			return fmt.Errorf("%w: item %d has %d available",
				catalog.ErrInsufficientStock, itemID, item.AvailableQuantity)
		}
		item.AvailableQuantity += delta
		result = *item

		return nil
	})

	return result, err
}

// CreateRestaurant stores a restaurant without items.
func (r *CatalogRepository) CreateRestaurant(
	_ context.Context,
	rest catalog.Restaurant,
) (catalog.Restaurant, error) {
	err := r.acc.write(func(d *dataset) error {
		var maxID int64
		for _, existing := range d.Restaurants {
			if existing.ID == rest.ID {
				return fmt.Errorf("%w: restaurant %d", catalog.ErrAlreadyExists, rest.ID)
			}
			maxID = max(maxID, existing.ID)
		}
		if rest.ID == 0 {
			rest.ID = maxID + 1
		}
		rest.Items = []catalog.Item{}
		d.Restaurants = append(d.Restaurants, rest)

		return nil
	})
	if err != nil {
		return catalog.Restaurant{}, err
	}

	return rest, nil
}

// AddItem stores an item under a restaurant.
func (r *CatalogRepository) AddItem(
	_ context.Context,
	restaurantID int64,
	item catalog.Item,
) (catalog.Item, error) {
	err := r.acc.write(func(d *dataset) error {
		ri, err := findRestaurant(d, restaurantID)
		if err != nil {
			return err
		}

		// Item ids are unique across restaurants.
		var maxID int64
		for _, rest := range d.Restaurants {
			for _, existing := range rest.Items {
				if item.ID != 0 && existing.ID == item.ID {
					return fmt.Errorf("%w: item %d", catalog.ErrAlreadyExists, item.ID)
				}
				maxID = max(maxID, existing.ID)
			}
		}
		if item.ID == 0 {
			item.ID = maxID + 1
		}

		rest := &d.Restaurants[ri]
		rest.Items = append(rest.Items, item)

		return nil
	})
	if err != nil {
		return catalog.Item{}, err
	}

	return item, nil
}

// UpdateItem applies patch to an item.
func (r *CatalogRepository) UpdateItem(
	_ context.Context,
	restaurantID, itemID int64,
	patch catalog.ItemPatch,
) (catalog.Item, error) {
	var result catalog.Item
	err := r.acc.write(func(d *dataset) error {
		ri, err := findRestaurant(d, restaurantID)
		if err != nil {
			return err
		}
		rest := &d.Restaurants[ri]
		ii, err := findItem(rest, itemID)
		if err != nil {
			return err
		}

		updated := patch.Apply(rest.Items[ii])
		if err := updated.Validate(); err != nil {
			return err
		}
		rest.Items[ii] = updated
		result = updated

		return nil
	})

	return result, err
}
