package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
)

// OrderRepository is the in-memory order store.
type OrderRepository struct {
	acc access
}

// NewOrderRepository creates an order repository that commits each call.
func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{acc: direct{store: store}}
}

func findOrder(d *dataset, id int64) (int, error) {
	for i := range d.Orders {
		if d.Orders[i].ID == id {
			return i, nil
		}
	}

	return -1, fmt.Errorf("%w: id %d", order.ErrOrderNotFound, id)
}

// NextID returns max(id)+1, or 1 for an empty store.
func (r *OrderRepository) NextID(_ context.Context) (int64, error) {
	var next int64 = 1
	err := r.acc.read(func(d *dataset) error {
		for _, o := range d.Orders {
			next = max(next, o.ID+1)
		}

		return nil
	})

	return next, err
}

// Insert appends an order. The id must be unused.
func (r *OrderRepository) Insert(_ context.Context, o order.Order) error {
	return r.acc.write(func(d *dataset) error {
		if _, err := findOrder(d, o.ID); err == nil {
			return fmt.Errorf("failed to insert order: id %d already used", o.ID)
		}
		d.Orders = append(d.Orders, cloneOrder(o))

		return nil
	})
}

// LockOrder checks the order exists. Exclusivity comes from the store lock
// held by the unit of work.
func (r *OrderRepository) LockOrder(_ context.Context, id int64) error {
	return r.acc.read(func(d *dataset) error {
		_, err := findOrder(d, id)

		return err
	})
}

// Get returns the order with the given id.
func (r *OrderRepository) Get(_ context.Context, id int64) (order.Order, error) {
	var result order.Order
	err := r.acc.read(func(d *dataset) error {
		i, err := findOrder(d, id)
		if err != nil {
			return err
		}
		result = cloneOrder(d.Orders[i])

		return nil
	})

	return result, err
}

// Query scans all orders and keeps the ones matching the filter.
func (r *OrderRepository) Query(_ context.Context, filter order.QueryOrdersModel) ([]order.Order, error) {
	result := []order.Order{}
	err := r.acc.read(func(d *dataset) error {
		for _, o := range d.Orders {
			if filter.Matches(o) {
				result = append(result, cloneOrder(o))
			}
		}

		return nil
	})

	return result, err
}

// UpdateStatus overwrites the status and, if given, the estimated delivery time.
func (r *OrderRepository) UpdateStatus(
	_ context.Context,
	id int64,
	status order.Status,
	eta *time.Time,
) (order.Order, error) {
	var result order.Order
	err := r.acc.write(func(d *dataset) error {
		i, err := findOrder(d, id)
		if err != nil {
			return err
		}

		o := &d.Orders[i]
		o.Status = status
		if eta != nil {
			t := *eta
			o.EstimatedDeliveryTime = &t
		}
		result = cloneOrder(*o)

		return nil
	})

	return result, err
}
