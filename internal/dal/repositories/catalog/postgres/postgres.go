package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var itemColumns = []string{"id", "restaurant_id", "name", "price", "description", "available_quantity"}

// ItemDal represents the items table row.
type ItemDal struct {
	Id                int64           `db:"id"`
	RestaurantId      int64           `db:"restaurant_id"`
	Name              string          `db:"name"`
	Price             decimal.Decimal `db:"price"`
	Description       string          `db:"description"`
	AvailableQuantity int             `db:"available_quantity"`
}

// ToModel converts ItemDal to the service layer Item model.
func (i *ItemDal) ToModel() catalog.Item {
	return catalog.Item{
		ID:                i.Id,
		Name:              i.Name,
		Price:             i.Price,
		Description:       i.Description,
		AvailableQuantity: i.AvailableQuantity,
	}
}

func scanItem(row pgx.Row) (ItemDal, error) {
	var dal ItemDal
	err := row.Scan(
		&dal.Id,
		&dal.RestaurantId,
		&dal.Name,
		&dal.Price,
		&dal.Description,
		&dal.AvailableQuantity,
	)

	return dal, err
}

// PostgresCatalogRepository stores restaurants and items.
type PostgresCatalogRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresCatalogRepository creates a new catalog repository.
func NewPostgresCatalogRepository(conn postgres.GenericConn) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// LockRestaurant locks the restaurant row until the surrounding transaction ends.
func (r *PostgresCatalogRepository) LockRestaurant(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Select("id").
		From("restaurants").
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	var locked int64
	err = r.conn.QueryRow(ctx, sql, args...).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: id %d", catalog.ErrRestaurantNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock restaurant: %w", err)
	}

	return nil
}

// GetRestaurant returns the restaurant with its items.
func (r *PostgresCatalogRepository) GetRestaurant(ctx context.Context, id int64) (catalog.Restaurant, error) {
	restaurants, err := r.queryRestaurants(ctx, sq.Eq{"id": id})
	if err != nil {
		return catalog.Restaurant{}, err
	}
	if len(restaurants) == 0 {
		return catalog.Restaurant{}, fmt.Errorf("%w: id %d", catalog.ErrRestaurantNotFound, id)
	}

	return restaurants[0], nil
}

// ListRestaurants returns every restaurant with its items.
func (r *PostgresCatalogRepository) ListRestaurants(ctx context.Context) ([]catalog.Restaurant, error) {
	return r.queryRestaurants(ctx, nil)
}

func (r *PostgresCatalogRepository) queryRestaurants(ctx context.Context, where sq.Sqlizer) ([]catalog.Restaurant, error) {
	query := r.sb.Select("id", "name", "location", "description").
		From("restaurants").
		OrderBy("id")
	if where != nil {
		query = query.Where(where)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query restaurants: %w", err)
	}
	defer rows.Close()

	result := []catalog.Restaurant{}
	ids := []int64{}
	for rows.Next() {
		rest := catalog.Restaurant{Items: []catalog.Item{}}
		if err := rows.Scan(&rest.ID, &rest.Name, &rest.Location, &rest.Description); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		result = append(result, rest)
		ids = append(ids, rest.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(result) == 0 {
		return result, nil
	}

	items, err := r.queryItems(ctx, sq.Eq{"restaurant_id": ids})
	if err != nil {
		return nil, err
	}
	for i := range result {
		for _, item := range items {
			if item.RestaurantId == result[i].ID {
				result[i].Items = append(result[i].Items, item.ToModel())
			}
		}
	}

	return result, nil
}

func (r *PostgresCatalogRepository) queryItems(ctx context.Context, where sq.Sqlizer) ([]ItemDal, error) {
	sql, args, err := r.sb.Select(itemColumns...).
		From("items").
		Where(where).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var result []ItemDal
	for rows.Next() {
		dal, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		result = append(result, dal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// ApplyStockDelta adds delta to the item's available quantity. The guard in the
// WHERE clause keeps stock from going below zero.
func (r *PostgresCatalogRepository) ApplyStockDelta(
	ctx context.Context,
	restaurantID, itemID int64,
	delta int,
) (catalog.Item, error) {
	sql, args, err := r.sb.Update("items").
		Set("available_quantity", sq.Expr("available_quantity + ?", delta)).
		Where(sq.Eq{"restaurant_id": restaurantID, "id": itemID}).
		Where(sq.Expr("available_quantity + ? >= 0", delta)).
		Suffix("RETURNING id, restaurant_id, name, price, description, available_quantity").
		ToSql()
	if err != nil {
		return catalog.Item{}, fmt.Errorf("failed to build query: %w", err)
	}

	dal, err := scanItem(r.conn.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Item{}, r.explainStockMiss(ctx, restaurantID, itemID)
	}
	if err != nil {
		return catalog.Item{}, fmt.Errorf("failed to apply stock delta: %w", err)
	}

	return dal.ToModel(), nil
}

// explainStockMiss tells apart the reasons a guarded stock update matched no row.
func (r *PostgresCatalogRepository) explainStockMiss(ctx context.Context, restaurantID, itemID int64) error {
	items, err := r.queryItems(ctx, sq.Eq{"restaurant_id": restaurantID, "id": itemID})
	if err != nil {
		return err
	}
	if len(items) > 0 {
		return fmt.Errorf("%w: item %d has %d available",
			catalog.ErrInsufficientStock, itemID, items[0].AvailableQuantity)
	}

	if _, err := r.GetRestaurant(ctx, restaurantID); err != nil {
		return err
	}

	return fmt.Errorf("%w: item %d", catalog.ErrItemNotFound, itemID)
}

// CreateRestaurant inserts a restaurant. An explicit id is kept and the id
// sequence is moved past it.
func (r *PostgresCatalogRepository) CreateRestaurant(
	ctx context.Context,
	rest catalog.Restaurant,
) (catalog.Restaurant, error) {
	insert := r.sb.Insert("restaurants")
	if rest.ID != 0 {
		insert = insert.Columns("id", "name", "location", "description").
			Values(rest.ID, rest.Name, rest.Location, rest.Description).
			Suffix("ON CONFLICT (id) DO NOTHING")
	} else {
		insert = insert.Columns("name", "location", "description").
			Values(rest.Name, rest.Location, rest.Description)
	}

	sql, args, err := insert.Suffix("RETURNING id").ToSql()
	if err != nil {
		return catalog.Restaurant{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	err = r.conn.QueryRow(ctx, sql, args...).Scan(&rest.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Restaurant{}, fmt.Errorf("%w: restaurant %d", catalog.ErrAlreadyExists, rest.ID)
	}
	if err != nil {
		return catalog.Restaurant{}, fmt.Errorf("failed to insert restaurant: %w", err)
	}
	if err := r.syncSequence(ctx, "restaurants"); err != nil {
		return catalog.Restaurant{}, err
	}

	rest.Items = []catalog.Item{}

	return rest, nil
}

// AddItem inserts an item under a restaurant.
func (r *PostgresCatalogRepository) AddItem(
	ctx context.Context,
	restaurantID int64,
	item catalog.Item,
) (catalog.Item, error) {
	if _, err := r.GetRestaurant(ctx, restaurantID); err != nil {
		return catalog.Item{}, err
	}

	insert := r.sb.Insert("items")
	if item.ID != 0 {
		insert = insert.Columns(itemColumns...).
			Values(item.ID, restaurantID, item.Name, item.Price, item.Description, item.AvailableQuantity).
			Suffix("ON CONFLICT (id) DO NOTHING")
	} else {
		insert = insert.Columns(itemColumns[1:]...).
			Values(restaurantID, item.Name, item.Price, item.Description, item.AvailableQuantity)
	}

	sql, args, err := insert.Suffix("RETURNING id").ToSql()
	if err != nil {
		return catalog.Item{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	err = r.conn.QueryRow(ctx, sql, args...).Scan(&item.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Item{}, fmt.Errorf("%w: item %d", catalog.ErrAlreadyExists, item.ID)
	}
	if err != nil {
		return catalog.Item{}, fmt.Errorf("failed to insert item: %w", err)
	}
	if err := r.syncSequence(ctx, "items"); err != nil {
		return catalog.Item{}, err
	}

	return item, nil
}

// UpdateItem writes the non-nil patch fields.
func (r *PostgresCatalogRepository) UpdateItem(
	ctx context.Context,
	restaurantID, itemID int64,
	patch catalog.ItemPatch,
) (catalog.Item, error) {
	update := r.sb.Update("items").
		Where(sq.Eq{"restaurant_id": restaurantID, "id": itemID}).
		Suffix("RETURNING id, restaurant_id, name, price, description, available_quantity")

	// A no-op assignment keeps the statement valid for an empty patch.
	update = update.Set("id", sq.Expr("id"))
	if patch.Name != nil {
		update = update.Set("name", *patch.Name)
	}
	if patch.Price != nil {
		update = update.Set("price", *patch.Price)
	}
	if patch.Description != nil {
		update = update.Set("description", *patch.Description)
	}
	if patch.AvailableQuantity != nil {
		update = update.Set("available_quantity", *patch.AvailableQuantity)
	}

	sql, args, err := update.ToSql()
	if err != nil {
		return catalog.Item{}, fmt.Errorf("failed to build update query: %w", err)
	}

	dal, err := scanItem(r.conn.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := r.GetRestaurant(ctx, restaurantID); err != nil {
			return catalog.Item{}, err
		}

		return catalog.Item{}, fmt.Errorf("%w: item %d", catalog.ErrItemNotFound, itemID)
	}
	if err != nil {
		return catalog.Item{}, fmt.Errorf("failed to update item: %w", err)
	}

	return dal.ToModel(), nil
}

// syncSequence moves the table's id sequence to its current max id.
func (r *PostgresCatalogRepository) syncSequence(ctx context.Context, table string) error {
	_, err := r.conn.Exec(ctx, fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), GREATEST((SELECT MAX(id) FROM %[1]s), 1))",
		table,
	))
	if err != nil {
		return fmt.Errorf("failed to sync %s id sequence: %w", table, err)
	}

	return nil
}
