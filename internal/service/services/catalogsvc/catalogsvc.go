package catalogsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/icatalogrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/memory"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/dal/uow"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/shopspring/decimal"
)

// CatalogService manages restaurants and their menus.
type CatalogService struct {
	pgClient *postgres.Client
	memStore *memory.Store
}

func (s *CatalogService) newUOW() unitOfWork {
	if s.memStore != nil {
		return memory.NewUnitOfWork(s.memStore)
	}

	return uow.NewUnitOfWork(s.pgClient)
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	CatalogRepository() icatalogrepo.ICatalogRepository
}

// Option configures the CatalogService.
type Option func(*CatalogService)

// MustNewCatalogService creates a new CatalogService.
func MustNewCatalogService(opts ...Option) *CatalogService {
	s := &CatalogService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.pgClient == nil && s.memStore == nil {
		panic("catalogsvc: no storage configured")
	}

	return s
}

func WithPostgresClient(pgClient *postgres.Client) Option {
	return func(s *CatalogService) {
		s.pgClient = pgClient
	}
}

func WithMemoryStore(store *memory.Store) Option {
	return func(s *CatalogService) {
		s.memStore = store
	}
}

// NewRestaurant is the input of CreateRestaurant.
type NewRestaurant struct {
	Name        string
	Location    string
	Description string
}

// NewItem is the input of AddItem.
type NewItem struct {
	Name              string
	Price             decimal.Decimal
	Description       string
	AvailableQuantity int
}

// ListRestaurants returns every restaurant with its menu.
func (s *CatalogService) ListRestaurants(ctx context.Context) ([]catalog.Restaurant, error) {
	return s.newUOW().CatalogRepository().ListRestaurants(ctx)
}

// GetRestaurant returns one restaurant with its menu.
func (s *CatalogService) GetRestaurant(ctx context.Context, id int64) (catalog.Restaurant, error) {
	return s.newUOW().CatalogRepository().GetRestaurant(ctx, id)
}

// ListItems returns the menu of a restaurant.
func (s *CatalogService) ListItems(ctx context.Context, restaurantID int64) ([]catalog.Item, error) {
	r, err := s.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	return r.Items, nil
}

// CreateRestaurant adds a restaurant with an empty menu.
func (s *CatalogService) CreateRestaurant(ctx context.Context, in NewRestaurant) (catalog.Restaurant, error) {
	if strings.TrimSpace(in.Name) == "" {
		return catalog.Restaurant{}, fmt.Errorf("%w: restaurant name is required", order.ErrInvalidInput)
	}

	r, err := s.newUOW().CatalogRepository().CreateRestaurant(ctx, catalog.Restaurant{
		Name:        in.Name,
		Location:    in.Location,
		Description: in.Description,
	})
	if err != nil {
		return catalog.Restaurant{}, err
	}

	slog.InfoContext(ctx, "Restaurant created", "restaurant_id", r.ID, "name", r.Name)

	return r, nil
}

// AddItem adds an item to a restaurant's menu.
func (s *CatalogService) AddItem(ctx context.Context, restaurantID int64, in NewItem) (catalog.Item, error) {
	if strings.TrimSpace(in.Name) == "" {
		return catalog.Item{}, fmt.Errorf("%w: item name is required", order.ErrInvalidInput)
	}

	item := catalog.Item{
		Name:              in.Name,
		Price:             in.Price,
		Description:       in.Description,
		AvailableQuantity: in.AvailableQuantity,
	}
	if err := item.Validate(); err != nil {
		return catalog.Item{}, err
	}

	item, err := s.newUOW().CatalogRepository().AddItem(ctx, restaurantID, item)
	if err != nil {
		return catalog.Item{}, err
	}

	slog.InfoContext(ctx, "Item added", "restaurant_id", restaurantID, "item_id", item.ID)

	return item, nil
}

// UpdateItem changes the fields of an item that the patch carries.
func (s *CatalogService) UpdateItem(
	ctx context.Context,
	restaurantID, itemID int64,
	patch catalog.ItemPatch,
) (catalog.Item, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return catalog.Item{}, fmt.Errorf("%w: item name must not be empty", order.ErrInvalidInput)
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return catalog.Item{}, fmt.Errorf("%w: price must not be negative", catalog.ErrInvalidItem)
	}
	if patch.AvailableQuantity != nil && *patch.AvailableQuantity < 0 {
		return catalog.Item{}, fmt.Errorf("%w: available_quantity must not be negative", catalog.ErrInvalidItem)
	}

	return s.newUOW().CatalogRepository().UpdateItem(ctx, restaurantID, itemID, patch)
}

// Import stores the given restaurants with their ids and menus. Restaurants
// whose id is already taken are skipped. Returns the number imported.
func (s *CatalogService) Import(ctx context.Context, restaurants []catalog.Restaurant) (int, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer func() {
		if err := work.Rollback(context.WithoutCancel(ctx)); err != nil {
			slog.Error("Failed to roll back catalog import", "error", err)
		}
	}()

	repo := work.CatalogRepository()
	imported := 0
	for _, r := range restaurants {
		created, err := repo.CreateRestaurant(ctx, r)
		if errors.Is(err, catalog.ErrAlreadyExists) {
			slog.Debug("Restaurant already present, skipping", "restaurant_id", r.ID)

			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to import restaurant %d: %w", r.ID, err)
		}

		for _, item := range r.Items {
			if err := item.Validate(); err != nil {
				return 0, fmt.Errorf("failed to import item %d: %w", item.ID, err)
			}
			if _, err := repo.AddItem(ctx, created.ID, item); err != nil {
				return 0, fmt.Errorf("failed to import item %d: %w", item.ID, err)
			}
		}
		imported++
	}

	if err := work.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit catalog import: %w", err)
	}

	return imported, nil
}
