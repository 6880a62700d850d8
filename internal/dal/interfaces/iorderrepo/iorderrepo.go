package iorderrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
)

// IOrderRepository is the order store.
type IOrderRepository interface {
	// NextID returns max(id)+1, or 1 when no orders exist. Within a unit of work
	// the returned id stays reserved until commit or rollback.
	NextID(ctx context.Context) (int64, error)

	Insert(ctx context.Context, o order.Order) error

	// LockOrder takes exclusive ownership of the order for the rest of the
	// unit of work. Returns order.ErrOrderNotFound.
	LockOrder(ctx context.Context, id int64) error

	// Get returns order.ErrOrderNotFound when the id is unknown.
	Get(ctx context.Context, id int64) (order.Order, error)

	// Query returns orders matching the filter ordered by id.
	Query(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)

	// UpdateStatus overwrites the status and, when eta is not nil, the estimated
	// delivery time.
	UpdateStatus(ctx context.Context, id int64, status order.Status, eta *time.Time) (order.Order, error)
}
