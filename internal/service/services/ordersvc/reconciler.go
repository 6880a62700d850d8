package ordersvc

import (
	"context"
	"fmt"

	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/icatalogrepo"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
)

// reconcileStock re-reads the restaurant, checks the summed demand per item
// still fits, then decrements stock line by line. It must run in the same unit
// of work that locked the restaurant.
func reconcileStock(
	ctx context.Context,
	repo icatalogrepo.ICatalogRepository,
	restaurantID int64,
	lines []validatedLine,
) error {
	fresh, err := repo.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return err
	}

	demand := make(map[int64]int, len(lines))
	for _, line := range lines {
		demand[line.item.ID] += line.quantity
	}

	for itemID, quantity := range demand {
		item, ok := fresh.FindItem(itemID)
		if !ok {
			return fmt.Errorf("%w: item %d", catalog.ErrItemNotFound, itemID)
		}
		if item.AvailableQuantity < quantity {
			return fmt.Errorf("%w: item %d has %d available",
				catalog.ErrInsufficientStock, itemID, item.AvailableQuantity)
		}
	}

	for _, line := range lines {
		if _, err := repo.ApplyStockDelta(ctx, restaurantID, line.item.ID, -line.quantity); err != nil {
			return fmt.Errorf("failed to decrement stock of item %d: %w", line.item.ID, err)
		}
	}

	return nil
}
