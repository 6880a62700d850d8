package updateitem

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/render"
	"github.com/shopspring/decimal"
)

type service interface {
	UpdateItem(ctx context.Context, restaurantID, itemID int64, patch catalog.ItemPatch) (catalog.Item, error)
}

// updateItemRequest carries the fields to change. Absent fields stay as stored.
type updateItemRequest struct {
	Name              *string          `json:"name"`
	Price             *decimal.Decimal `json:"price"`
	Description       *string          `json:"description"`
	AvailableQuantity *int             `json:"available_quantity"`
}

func (r *updateItemRequest) toModel() catalog.ItemPatch {
	return catalog.ItemPatch{
		Name:              r.Name,
		Price:             r.Price,
		Description:       r.Description,
		AvailableQuantity: r.AvailableQuantity,
	}
}

// UpdateItem handles PUT /restaurants/{restaurantID}/items/{itemID}.
func UpdateItem(w http.ResponseWriter, r *http.Request, service service) {
	restaurantID, err := render.Int64Param(r, "restaurantID")
	if err != nil {
		render.Error(w, r, err)

		return
	}
	itemID, err := render.Int64Param(r, "itemID")
	if err != nil {
		render.Error(w, r, err)

		return
	}

	req := updateItemRequest{}
	if err := render.DecodeJSON(r, &req); err != nil {
		render.Error(w, r, err)

		return
	}

	item, err := service.UpdateItem(r.Context(), restaurantID, itemID, req.toModel())
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.JSON(w, r, http.StatusOK, item)
}
