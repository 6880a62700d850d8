package updateorderstatus

import (
	"context"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/render"
	"github.com/go-playground/validator/v10"
)

type service interface {
	UpdateOrderStatus(ctx context.Context, id int64, update order.StatusUpdate) (order.Order, error)
}

var validate = validator.New()

type updateStatusRequest struct {
	Status                string     `json:"status"                  validate:"required"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time"`
}

// UpdateOrderStatus handles PUT /orders/{orderID}/status.
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request, service service) {
	id, err := render.Int64Param(r, "orderID")
	if err != nil {
		render.Error(w, r, err)

		return
	}

	req := updateStatusRequest{}
	if err := render.DecodeJSON(r, &req); err != nil {
		render.Error(w, r, err)

		return
	}
	if err := validate.Struct(req); err != nil {
		render.Error(w, r, render.Invalid(err))

		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	updated, err := service.UpdateOrderStatus(r.Context(), id, order.StatusUpdate{
		Status:                status,
		EstimatedDeliveryTime: req.EstimatedDeliveryTime,
	})
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.JSON(w, r, http.StatusOK, updated)
}
