package createrestaurant

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/catalogsvc"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/render"
	"github.com/go-playground/validator/v10"
)

type service interface {
	CreateRestaurant(ctx context.Context, in catalogsvc.NewRestaurant) (catalog.Restaurant, error)
}

var validate = validator.New()

type createRestaurantRequest struct {
	Name        string `json:"name"        validate:"required"`
	Location    string `json:"location"    validate:"required"`
	Description string `json:"description"`
}

// CreateRestaurant handles POST /restaurants.
func CreateRestaurant(w http.ResponseWriter, r *http.Request, service service) {
	req := createRestaurantRequest{}
	if err := render.DecodeJSON(r, &req); err != nil {
		render.Error(w, r, err)

		return
	}
	if err := validate.Struct(req); err != nil {
		render.Error(w, r, render.Invalid(err))

		return
	}

	created, err := service.CreateRestaurant(r.Context(), catalogsvc.NewRestaurant{
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.JSON(w, r, http.StatusCreated, created)
}
