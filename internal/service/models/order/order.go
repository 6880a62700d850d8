package order

import (
	"errors"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidQuantity         = errors.New("quantity must be greater than 0")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrInvalidInput            = errors.New("invalid order request")
)

// Order represents a placed food order.
type Order struct {
	ID                    int64                 `json:"id"`
	RestaurantID          int64                 `json:"restaurant_id"`
	RestaurantName        string                `json:"restaurant_name"`
	Items                 []orderitem.OrderItem `json:"items"`
	CustomerName          string                `json:"customer_name"`
	CustomerPhone         string                `json:"customer_phone"`
	DeliveryAddress       string                `json:"delivery_address"`
	SpecialInstructions   *string               `json:"special_instructions"`
	TotalAmount           decimal.Decimal       `json:"total_amount"`
	Status                Status                `json:"status"`
	CreatedAt             time.Time             `json:"created_at"`
	EstimatedDeliveryTime *time.Time            `json:"estimated_delivery_time"`
}

// CreateRequest is an incoming request to place an order.
type CreateRequest struct {
	RestaurantID        int64            `json:"restaurant_id"`
	Items               []orderitem.Line `json:"items"`
	CustomerName        string           `json:"customer_name"`
	CustomerPhone       string           `json:"customer_phone"`
	DeliveryAddress     string           `json:"delivery_address"`
	SpecialInstructions *string          `json:"special_instructions,omitempty"`
}

// StatusUpdate moves an order to a new status. A nil EstimatedDeliveryTime
// keeps the stored one.
type StatusUpdate struct {
	Status                Status     `json:"status"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
}
