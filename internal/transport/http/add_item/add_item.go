package additem

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/catalogsvc"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/render"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type service interface {
	AddItem(ctx context.Context, restaurantID int64, in catalogsvc.NewItem) (catalog.Item, error)
}

var validate = validator.New()

type addItemRequest struct {
	Name              string           `json:"name"               validate:"required"`
	Price             *decimal.Decimal `json:"price"              validate:"required"`
	Description       string           `json:"description"`
	AvailableQuantity int              `json:"available_quantity" validate:"gte=0"`
}

// AddItem handles POST /restaurants/{restaurantID}/items.
func AddItem(w http.ResponseWriter, r *http.Request, service service) {
	restaurantID, err := render.Int64Param(r, "restaurantID")
	if err != nil {
		render.Error(w, r, err)

		return
	}

	req := addItemRequest{}
	if err := render.DecodeJSON(r, &req); err != nil {
		render.Error(w, r, err)

		return
	}
	if err := validate.Struct(req); err != nil {
		render.Error(w, r, render.Invalid(err))

		return
	}

	item, err := service.AddItem(r.Context(), restaurantID, catalogsvc.NewItem{
		Name:              req.Name,
		Price:             *req.Price,
		Description:       req.Description,
		AvailableQuantity: req.AvailableQuantity,
	})
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.JSON(w, r, http.StatusCreated, item)
}
