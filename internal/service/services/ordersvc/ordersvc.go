package ordersvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/icatalogrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/memory"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/dal/uow"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ordersvc"

// DefaultDeliveryETA is added to the creation time to estimate delivery.
const DefaultDeliveryETA = 35 * time.Minute

// OrderService validates, prices and places orders against the catalog and
// drives their status lifecycle.
type OrderService struct {
	pgClient    *postgres.Client
	memStore    *memory.Store
	now         func() time.Time
	deliveryETA time.Duration
	events      eventsConfig
}

type eventsConfig struct {
	exchange   string
	maxRetries int
}

func (s *OrderService) newUOW() unitOfWork {
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
	OrderRepository() iorderrepo.IOrderRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// Option configures the OrderService.
type Option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...Option) *OrderService {
	s := &OrderService{
		now:         time.Now,
		deliveryETA: DefaultDeliveryETA,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.pgClient == nil && s.memStore == nil {
		panic("ordersvc: no storage configured")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
func WithPostgresClient(pgClient *postgres.Client) Option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithMemoryStore backs the OrderService with an in-memory store.
func WithMemoryStore(store *memory.Store) Option {
	return func(s *OrderService) {
		s.memStore = store
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *OrderService) {
		s.now = now
	}
}

// WithDeliveryETA sets the offset between creation and estimated delivery.
func WithDeliveryETA(d time.Duration) Option {
	return func(s *OrderService) {
		if d > 0 {
			s.deliveryETA = d
		}
	}
}

// WithEvents enables order events. Each committed change writes an outbox
// message addressed to exchange.
func WithEvents(exchange string, maxRetries int) Option {
	return func(s *OrderService) {
		s.events = eventsConfig{exchange: exchange, maxRetries: maxRetries}
	}
}

func (s *OrderService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func rollback(ctx context.Context, work unitOfWork) {
	if err := work.Rollback(context.WithoutCancel(ctx)); err != nil {
		slog.Error("Failed to roll back unit of work", "error", err)
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}

// CreateOrder validates the request against the restaurant's current menu,
// prices it, takes the stock and stores the order as pending. All of it
// happens in one unit of work holding the restaurant lock. An unknown
// restaurant is reported before anything in the request body.
func (s *OrderService) CreateOrder(ctx context.Context, req order.CreateRequest) (order.Order, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "OrderService.CreateOrder",
		trace.WithAttributes(
			attribute.Int64("restaurant.id", req.RestaurantID),
			attribute.Int("order.lines", len(req.Items)),
		),
	)
	defer span.End()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, fail(span, fmt.Errorf("failed to begin unit of work: %w", err))
	}
	defer rollback(ctx, work)

	catalogRepo := work.CatalogRepository()
	if err := catalogRepo.LockRestaurant(ctx, req.RestaurantID); err != nil {
		return order.Order{}, fail(span, err)
	}

	restaurant, err := catalogRepo.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return order.Order{}, fail(span, err)
	}

	if err := validateRequest(req); err != nil {
		return order.Order{}, fail(span, err)
	}

	lines, err := validateLines(restaurant, req.Items)
	if err != nil {
		return order.Order{}, fail(span, err)
	}

	items, total := priceLines(lines)

	if err := reconcileStock(ctx, catalogRepo, restaurant.ID, lines); err != nil {
		return order.Order{}, fail(span, err)
	}

	orderRepo := work.OrderRepository()
	id, err := orderRepo.NextID(ctx)
	if err != nil {
		return order.Order{}, fail(span, err)
	}

	now := s.timestamp()
	eta := now.Add(s.deliveryETA)
	o := order.Order{
		ID:                    id,
		RestaurantID:          restaurant.ID,
		RestaurantName:        restaurant.Name,
		Items:                 items,
		CustomerName:          req.CustomerName,
		CustomerPhone:         req.CustomerPhone,
		DeliveryAddress:       req.DeliveryAddress,
		SpecialInstructions:   req.SpecialInstructions,
		TotalAmount:           total,
		Status:                order.StatusPending,
		CreatedAt:             now,
		EstimatedDeliveryTime: &eta,
	}

	if err := orderRepo.Insert(ctx, o); err != nil {
		return order.Order{}, fail(span, err)
	}

	if err := s.enqueueEvent(ctx, work, outbox.EventOrderCreated, o, now); err != nil {
		return order.Order{}, fail(span, err)
	}

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, fail(span, fmt.Errorf("failed to commit order: %w", err))
	}

	span.SetAttributes(attribute.Int64("order.id", o.ID))
	slog.InfoContext(ctx, "Order created",
		"order_id", o.ID,
		"restaurant_id", o.RestaurantID,
		"lines", len(o.Items),
		"total_amount", o.TotalAmount.String(),
	)

	return o, nil
}

// GetOrder returns the order with the given id.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (order.Order, error) {
	return s.newUOW().OrderRepository().Get(ctx, id)
}

// QueryOrders returns the orders matching the filter, ordered by id.
func (s *OrderService) QueryOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error) {
	return s.newUOW().OrderRepository().Query(ctx, filter)
}

// ListOrders returns every order.
func (s *OrderService) ListOrders(ctx context.Context) ([]order.Order, error) {
	return s.QueryOrders(ctx, order.QueryOrdersModel{})
}

// ListOrdersByRestaurant returns the orders placed with one restaurant.
func (s *OrderService) ListOrdersByRestaurant(ctx context.Context, restaurantID int64) ([]order.Order, error) {
	return s.QueryOrders(ctx, order.QueryOrdersModel{RestaurantIDs: []int64{restaurantID}})
}

// ListOrdersByStatus returns the orders currently in the given status.
func (s *OrderService) ListOrdersByStatus(ctx context.Context, status order.Status) ([]order.Order, error) {
	if _, err := order.ParseStatus(status.String()); err != nil {
		return nil, err
	}

	return s.QueryOrders(ctx, order.QueryOrdersModel{Statuses: []order.Status{status}})
}

// UpdateOrderStatus moves an order to a new status. The transition is checked
// while holding the order lock. The estimated delivery time is only
// overwritten when the update carries one.
func (s *OrderService) UpdateOrderStatus(
	ctx context.Context,
	id int64,
	update order.StatusUpdate,
) (order.Order, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "OrderService.UpdateOrderStatus",
		trace.WithAttributes(
			attribute.Int64("order.id", id),
			attribute.String("order.status", update.Status.String()),
		),
	)
	defer span.End()

	if _, err := order.ParseStatus(update.Status.String()); err != nil {
		return order.Order{}, fail(span, err)
	}

	var eta *time.Time
	if update.EstimatedDeliveryTime != nil {
		t := update.EstimatedDeliveryTime.UTC().Truncate(time.Microsecond)
		eta = &t
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, fail(span, fmt.Errorf("failed to begin unit of work: %w", err))
	}
	defer rollback(ctx, work)

	orderRepo := work.OrderRepository()
	if err := orderRepo.LockOrder(ctx, id); err != nil {
		return order.Order{}, fail(span, err)
	}

	current, err := orderRepo.Get(ctx, id)
	if err != nil {
		return order.Order{}, fail(span, err)
	}

	if !current.Status.CanTransitionTo(update.Status) {
		return order.Order{}, fail(span, fmt.Errorf("%w: %s -> %s",
			order.ErrInvalidStatusTransition, current.Status, update.Status))
	}

	updated, err := orderRepo.UpdateStatus(ctx, id, update.Status, eta)
	if err != nil {
		return order.Order{}, fail(span, err)
	}

	if err := s.enqueueEvent(ctx, work, outbox.EventOrderStatusChanged, updated, s.timestamp()); err != nil {
		return order.Order{}, fail(span, err)
	}

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, fail(span, fmt.Errorf("failed to commit status update: %w", err))
	}

	slog.InfoContext(ctx, "Order status updated",
		"order_id", id,
		"from", current.Status.String(),
		"to", updated.Status.String(),
	)

	return updated, nil
}

// enqueueEvent writes an order event to the outbox of the running unit of work.
func (s *OrderService) enqueueEvent(
	ctx context.Context,
	work unitOfWork,
	eventType string,
	o order.Order,
	now time.Time,
) error {
	if s.events.exchange == "" {
		return nil
	}

	msg, err := outbox.NewOrderMessage(s.events.exchange, eventType, o, now, s.events.maxRetries)
	if err != nil {
		return err
	}

	return work.OutboxRepository().Insert(ctx, msg)
}
