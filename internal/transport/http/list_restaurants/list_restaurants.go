package listrestaurants

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/render"
)

type service interface {
	ListRestaurants(ctx context.Context) ([]catalog.Restaurant, error)
	GetRestaurant(ctx context.Context, id int64) (catalog.Restaurant, error)
	ListItems(ctx context.Context, restaurantID int64) ([]catalog.Item, error)
}

type listRestaurantsResponse struct {
	Restaurants []catalog.Restaurant `json:"restaurants"`
}

type listItemsResponse struct {
	Items []catalog.Item `json:"items"`
}

// ListRestaurants handles GET /restaurants.
func ListRestaurants(w http.ResponseWriter, r *http.Request, service service) {
	restaurants, err := service.ListRestaurants(r.Context())
	if err != nil {
		render.Error(w, r, err)

		return
	}
	if restaurants == nil {
		restaurants = []catalog.Restaurant{}
	}

	render.JSON(w, r, http.StatusOK, listRestaurantsResponse{Restaurants: restaurants})
}

// GetRestaurant handles GET /restaurants/{restaurantID}.
func GetRestaurant(w http.ResponseWriter, r *http.Request, service service) {
	id, err := render.Int64Param(r, "restaurantID")
	if err != nil {
		render.Error(w, r, err)

		return
	}

	restaurant, err := service.GetRestaurant(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.JSON(w, r, http.StatusOK, restaurant)
}

// ListItems handles GET /restaurants/{restaurantID}/items.
func ListItems(w http.ResponseWriter, r *http.Request, service service) {
	id, err := render.Int64Param(r, "restaurantID")
	if err != nil {
		render.Error(w, r, err)

		return
	}

	items, err := service.ListItems(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)

		return
	}
	if items == nil {
		items = []catalog.Item{}
	}

	render.JSON(w, r, http.StatusOK, listItemsResponse{Items: items})
}
