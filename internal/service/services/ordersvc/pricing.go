package ordersvc

import (
	"github.com/corray333/backend-labs/foodorder/internal/service/models/money"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

// priceLines snapshots each validated line into an order item and returns the
// rounded order total.
func priceLines(lines []validatedLine) ([]orderitem.OrderItem, decimal.Decimal) {
	items := make([]orderitem.OrderItem, 0, len(lines))
	subtotals := make([]decimal.Decimal, 0, len(lines))

	for _, line := range lines {
		subtotal := money.Subtotal(line.item.Price, line.quantity)
		items = append(items, orderitem.OrderItem{
			ItemID:   line.item.ID,
			Name:     line.item.Name,
			Price:    line.item.Price,
			Quantity: line.quantity,
			Subtotal: subtotal,
		})
		subtotals = append(subtotals, subtotal)
	}

	return items, money.Total(subtotals...)
}
