package listorders

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/render"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
)

type service interface {
	QueryOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
}

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)

	return d
}()

type queryOrdersRequest struct {
	Ids           []int64  `schema:"ids"`
	RestaurantIds []int64  `schema:"restaurant_id"`
	Statuses      []string `schema:"status"`
}

func (q *queryOrdersRequest) ToModel() (order.QueryOrdersModel, error) {
	statuses := make([]order.Status, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		status, err := order.ParseStatus(s)
		if err != nil {
			return order.QueryOrdersModel{}, err
		}
		statuses = append(statuses, status)
	}

	return order.QueryOrdersModel{
		IDs:           q.Ids,
		RestaurantIDs: q.RestaurantIds,
		Statuses:      statuses,
	}, nil
}

type listOrdersResponse struct {
	Orders []order.Order `json:"orders"`
}

func respond(w http.ResponseWriter, r *http.Request, service service, filter order.QueryOrdersModel) {
	orders, err := service.QueryOrders(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)

		return
	}
	if orders == nil {
		orders = []order.Order{}
	}

	render.JSON(w, r, http.StatusOK, listOrdersResponse{Orders: orders})
}

// ListOrders handles GET /orders with optional ids, restaurant_id and status
// query filters.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	query := &queryOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		render.Error(w, r, render.Invalid(err))

		return
	}

	filter, err := query.ToModel()
	if err != nil {
		render.Error(w, r, err)

		return
	}

	respond(w, r, service, filter)
}

// ListOrdersByStatus handles GET /orders/status/{status}.
func ListOrdersByStatus(w http.ResponseWriter, r *http.Request, service service) {
	status, err := order.ParseStatus(chi.URLParam(r, "status"))
	if err != nil {
		render.Error(w, r, err)

		return
	}

	respond(w, r, service, order.QueryOrdersModel{Statuses: []order.Status{status}})
}

// ListRestaurantOrders handles GET /restaurants/{restaurantID}/orders.
func ListRestaurantOrders(w http.ResponseWriter, r *http.Request, service service) {
	id, err := render.Int64Param(r, "restaurantID")
	if err != nil {
		render.Error(w, r, err)

		return
	}

	respond(w, r, service, order.QueryOrdersModel{RestaurantIDs: []int64{id}})
}
