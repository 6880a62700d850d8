package createorder

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/render"
	"github.com/go-playground/validator/v10"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, req order.CreateRequest) (order.Order, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// lineInCreateOrderRequest represents one requested item. Item ids and
// quantities are checked by the service so that unknown items are reported
// first.
type lineInCreateOrderRequest struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

// createOrderRequest represents a create order request. Items and customer
// fields are checked by the service after the restaurant lookup.
type createOrderRequest struct {
	RestaurantID        int64                      `json:"restaurant_id"        validate:"gt=0"`
	Items               []lineInCreateOrderRequest `json:"items"`
	CustomerName        string                     `json:"customer_name"`
	CustomerPhone       string                     `json:"customer_phone"`
	DeliveryAddress     string                     `json:"delivery_address"`
	SpecialInstructions *string                    `json:"special_instructions"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validate.Struct(r)
}

// toModel converts createOrderRequest to order.CreateRequest.
func (r *createOrderRequest) toModel() order.CreateRequest {
	lines := make([]orderitem.Line, len(r.Items))
	for i, item := range r.Items {
		lines[i] = orderitem.Line{ItemID: item.ItemID, Quantity: item.Quantity}
	}

	return order.CreateRequest{
		RestaurantID:        r.RestaurantID,
		Items:               lines,
		CustomerName:        r.CustomerName,
		CustomerPhone:       r.CustomerPhone,
		DeliveryAddress:     r.DeliveryAddress,
		SpecialInstructions: r.SpecialInstructions,
	}
}

// CreateOrder handles the create order request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := createOrderRequest{}
	if err := render.DecodeJSON(r, &req); err != nil {
		render.Error(w, r, err)

		return
	}

	if err := req.Validate(); err != nil {
		render.Error(w, r, render.Invalid(err))

		return
	}

	created, err := service.CreateOrder(r.Context(), req.toModel())
	if err != nil {
		render.Error(w, r, err)

		return
	}

	slog.DebugContext(r.Context(), "Order accepted over HTTP", "order_id", created.ID)
	render.JSON(w, r, http.StatusCreated, created)
}
