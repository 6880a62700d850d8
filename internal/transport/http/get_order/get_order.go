package getorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/render"
)

type service interface {
	GetOrder(ctx context.Context, id int64) (order.Order, error)
}

// GetOrder handles GET /orders/{orderID}.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := render.Int64Param(r, "orderID")
	if err != nil {
		render.Error(w, r, err)

		return
	}

	o, err := service.GetOrder(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.JSON(w, r, http.StatusOK, o)
}
