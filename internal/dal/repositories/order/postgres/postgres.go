package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// nextIDLockKey is the advisory lock serializing order id allocation.
const nextIDLockKey int64 = 0x6f726465725f6964

var orderColumns = []string{
	"id",
	"restaurant_id",
	"restaurant_name",
	"customer_name",
	"customer_phone",
	"delivery_address",
	"special_instructions",
	"total_amount",
	"status",
	"created_at",
	"estimated_delivery_time",
}

// OrderDal represents order data access layer model.
type OrderDal struct {
	Id                    int64           `db:"id"`
	RestaurantId          int64           `db:"restaurant_id"`
	RestaurantName        string          `db:"restaurant_name"`
	CustomerName          string          `db:"customer_name"`
	CustomerPhone         string          `db:"customer_phone"`
	DeliveryAddress       string          `db:"delivery_address"`
	SpecialInstructions   *string         `db:"special_instructions"`
	TotalAmount           decimal.Decimal `db:"total_amount"`
	Status                string          `db:"status"`
	CreatedAt             time.Time       `db:"created_at"`
	EstimatedDeliveryTime *time.Time      `db:"estimated_delivery_time"`
}

// ToModel converts OrderDal to service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return nil, err
	}

	return &order.Order{
		ID:                    o.Id,
		RestaurantID:          o.RestaurantId,
		RestaurantName:        o.RestaurantName,
		CustomerName:          o.CustomerName,
		CustomerPhone:         o.CustomerPhone,
		DeliveryAddress:       o.DeliveryAddress,
		SpecialInstructions:   o.SpecialInstructions,
		TotalAmount:           o.TotalAmount,
		Status:                status,
		CreatedAt:             o.CreatedAt,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		Items:                 []orderitem.OrderItem{}, // Will be populated separately
	}, nil
}

// OrderItemDal represents order item data access layer model.
type OrderItemDal struct {
	OrderId  int64           `db:"order_id"`
	Position int             `db:"position"`
	ItemId   int64           `db:"item_id"`
	Name     string          `db:"name"`
	Price    decimal.Decimal `db:"price"`
	Quantity int             `db:"quantity"`
	Subtotal decimal.Decimal `db:"subtotal"`
}

// ToModel converts OrderItemDal to service layer OrderItem model.
func (oi *OrderItemDal) ToModel() orderitem.OrderItem {
	return orderitem.OrderItem{
		ItemID:   oi.ItemId,
		Name:     oi.Name,
		Price:    oi.Price,
		Quantity: oi.Quantity,
		Subtotal: oi.Subtotal,
	}
}

// PostgresOrderRepository stores orders in the orders and order_items tables.
type PostgresOrderRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderRepository creates a new order repository.
func NewPostgresOrderRepository(conn postgres.GenericConn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// NextID returns max(id)+1. The advisory lock is held until the surrounding
// transaction ends, so concurrent creators cannot draw the same id.
func (r *PostgresOrderRepository) NextID(ctx context.Context) (int64, error) {
	if _, err := r.conn.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", nextIDLockKey); err != nil {
		return 0, fmt.Errorf("failed to lock order id allocation: %w", err)
	}

	var next int64
	if err := r.conn.QueryRow(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM orders").Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to allocate order id: %w", err)
	}

	return next, nil
}

// Insert stores the order and its line items.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) error {
	sql, args, err := r.sb.Insert("orders").
		Columns(orderColumns...).
		Values(
			o.ID,
			o.RestaurantID,
			o.RestaurantName,
			o.CustomerName,
			o.CustomerPhone,
			o.DeliveryAddress,
			o.SpecialInstructions,
			o.TotalAmount,
			o.Status.String(),
			o.CreatedAt,
			o.EstimatedDeliveryTime,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if len(o.Items) == 0 {
		return nil
	}

	positions := make([]int64, len(o.Items))
	itemIds := make([]int64, len(o.Items))
	names := make([]string, len(o.Items))
	prices := make([]string, len(o.Items))
	quantities := make([]int64, len(o.Items))
	subtotals := make([]string, len(o.Items))

	for i, item := range o.Items {
		positions[i] = int64(i)
		itemIds[i] = item.ItemID
		names[i] = item.Name
		prices[i] = item.Price.String()
		quantities[i] = int64(item.Quantity)
		subtotals[i] = item.Subtotal.String()
	}

	itemsSQL := `
		INSERT INTO order_items (order_id, position, item_id, name, price, quantity, subtotal)
		SELECT $1, t.position, t.item_id, t.name, t.price::numeric, t.quantity, t.subtotal::numeric
		FROM unnest($2::bigint[], $3::bigint[], $4::text[], $5::text[], $6::bigint[], $7::text[])
		AS t(position, item_id, name, price, quantity, subtotal)
	`

	_, err = r.conn.Exec(ctx, itemsSQL, o.ID, positions, itemIds, names, prices, quantities, subtotals)
	if err != nil {
		return fmt.Errorf("failed to bulk insert order items: %w", err)
	}

	return nil
}

// LockOrder locks the order row until the surrounding transaction ends.
func (r *PostgresOrderRepository) LockOrder(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Select("id").
		From("orders").
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	var locked int64
	err = r.conn.QueryRow(ctx, sql, args...).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: id %d", order.ErrOrderNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock order: %w", err)
	}

	return nil
}

// Get returns the order with the given id.
func (r *PostgresOrderRepository) Get(ctx context.Context, id int64) (order.Order, error) {
	orders, err := r.Query(ctx, order.QueryOrdersModel{IDs: []int64{id}})
	if err != nil {
		return order.Order{}, err
	}
	if len(orders) == 0 {
		return order.Order{}, fmt.Errorf("%w: id %d", order.ErrOrderNotFound, id)
	}

	return orders[0], nil
}

// Query retrieves orders based on filter criteria.
func (r *PostgresOrderRepository) Query(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error) {
	query := r.sb.Select(orderColumns...).
		From("orders").
		OrderBy("id")

	if len(filter.IDs) > 0 {
		query = query.Where(sq.Eq{"id": filter.IDs})
	}

	if len(filter.RestaurantIDs) > 0 {
		query = query.Where(sq.Eq{"restaurant_id": filter.RestaurantIDs})
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		query = query.Where(sq.Eq{"status": statuses})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	result := []order.Order{}
	for rows.Next() {
		var dal OrderDal
		err := rows.Scan(
			&dal.Id,
			&dal.RestaurantId,
			&dal.RestaurantName,
			&dal.CustomerName,
			&dal.CustomerPhone,
			&dal.DeliveryAddress,
			&dal.SpecialInstructions,
			&dal.TotalAmount,
			&dal.Status,
			&dal.CreatedAt,
			&dal.EstimatedDeliveryTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(result) == 0 {
		return result, nil
	}

	itemQuery := orderitem.QueryOrderItemsModel{}
	for _, o := range result {
		itemQuery.OrderIDs = append(itemQuery.OrderIDs, o.ID)
	}
	items, err := r.queryItems(ctx, itemQuery)
	if err != nil {
		return nil, err
	}

	for i := range result {
		for _, item := range items {
			if item.OrderId == result[i].ID {
				result[i].Items = append(result[i].Items, item.ToModel())
			}
		}
	}

	return result, nil
}

func (r *PostgresOrderRepository) queryItems(
	ctx context.Context,
	filter orderitem.QueryOrderItemsModel,
) ([]OrderItemDal, error) {
	sql, args, err := r.sb.
		Select("order_id", "position", "item_id", "name", "price", "quantity", "subtotal").
		From("order_items").
		Where(sq.Eq{"order_id": filter.OrderIDs}).
		OrderBy("order_id", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var result []OrderItemDal
	for rows.Next() {
		var dal OrderItemDal
		err := rows.Scan(
			&dal.OrderId,
			&dal.Position,
			&dal.ItemId,
			&dal.Name,
			&dal.Price,
			&dal.Quantity,
			&dal.Subtotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, dal)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// UpdateStatus overwrites the status and, when eta is set, the estimated
// delivery time.
func (r *PostgresOrderRepository) UpdateStatus(
	ctx context.Context,
	id int64,
	status order.Status,
	eta *time.Time,
) (order.Order, error) {
	update := r.sb.Update("orders").
		Set("status", status.String()).
		Where(sq.Eq{"id": id})
	if eta != nil {
		update = update.Set("estimated_delivery_time", *eta)
	}

	sql, args, err := update.ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.Order{}, fmt.Errorf("%w: id %d", order.ErrOrderNotFound, id)
	}

	return r.Get(ctx, id)
}
