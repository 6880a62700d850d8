package ordersvc

import (
	"fmt"
	"strings"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
)

// validatedLine pairs a menu item with the quantity requested for it.
type validatedLine struct {
	item     catalog.Item
	quantity int
}

// validateRequest checks the parts of a request that need no catalog data.
// It runs once the restaurant is known to exist.
func validateRequest(req order.CreateRequest) error {
	switch {
	case len(req.Items) == 0:
		return fmt.Errorf("%w: items must not be empty", order.ErrInvalidInput)
	case strings.TrimSpace(req.CustomerName) == "":
		return fmt.Errorf("%w: customer_name is required", order.ErrInvalidInput)
	case strings.TrimSpace(req.CustomerPhone) == "":
		return fmt.Errorf("%w: customer_phone is required", order.ErrInvalidInput)
	case strings.TrimSpace(req.DeliveryAddress) == "":
		return fmt.Errorf("%w: delivery_address is required", order.ErrInvalidInput)
	}

	return nil
}

// validateLines checks every requested line against one snapshot of the
// restaurant. Lines naming the same item are checked against stock by their
// running total.
func validateLines(restaurant catalog.Restaurant, lines []orderitem.Line) ([]validatedLine, error) {
	requested := make(map[int64]int, len(lines))
	result := make([]validatedLine, 0, len(lines))

	for _, line := range lines {
		item, ok := restaurant.FindItem(line.ItemID)
		if !ok {
			return nil, fmt.Errorf("%w: item %d", catalog.ErrItemNotFound, line.ItemID)
		}

		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d", order.ErrInvalidQuantity, line.ItemID)
		}

		requested[item.ID] += line.Quantity
		if requested[item.ID] > item.AvailableQuantity {
			return nil, fmt.Errorf("%w: item %d has %d available",
				catalog.ErrInsufficientStock, item.ID, item.AvailableQuantity)
		}

		result = append(result, validatedLine{item: item, quantity: line.Quantity})
	}

	return result, nil
}
