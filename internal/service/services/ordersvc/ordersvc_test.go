package ordersvc

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/dal/memory"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var fixedNow = time.Date(2025, 3, 1, 18, 30, 0, 123456789, time.UTC)

func seedStore(t *testing.T, store *memory.Store) {
	t.Helper()

	ctx := context.Background()
	repo := memory.NewCatalogRepository(store)

	if _, err := repo.CreateRestaurant(ctx, catalog.Restaurant{ID: 1, Name: "Spice Route", Location: "48 Curry Lane"}); err != nil {
		t.Fatalf("create restaurant: %v", err)
	}
	for _, item := range []catalog.Item{
		{ID: 101, Name: "Butter Chicken", Price: decimal.NewFromInt(220), AvailableQuantity: 5},
		{ID: 102, Name: "Garlic Naan", Price: decimal.NewFromInt(40), AvailableQuantity: 10},
		{ID: 103, Name: "Lassi", Price: decimal.RequireFromString("19.995"), AvailableQuantity: 10},
	} {
		if _, err := repo.AddItem(ctx, 1, item); err != nil {
			t.Fatalf("add item %d: %v", item.ID, err)
		}
	}
}

func newTestService(t *testing.T, opts ...Option) (*OrderService, *memory.Store) {
	t.Helper()

	store, err := memory.NewStore("")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	seedStore(t, store)

	opts = append([]Option{
		WithMemoryStore(store),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)

	return MustNewOrderService(opts...), store
}

func newRequest(lines ...orderitem.Line) order.CreateRequest {
	return order.CreateRequest{
		RestaurantID:    1,
		Items:           lines,
		CustomerName:    "Asha",
		CustomerPhone:   "+1-555-0100",
		DeliveryAddress: "7 Elm St",
	}
}

func stockOf(t *testing.T, store *memory.Store, itemID int64) int {
	t.Helper()

	r, err := memory.NewCatalogRepository(store).GetRestaurant(context.Background(), 1)
	if err != nil {
		t.Fatalf("get restaurant: %v", err)
	}
	item, ok := r.FindItem(itemID)
	if !ok {
		t.Fatalf("item %d not found", itemID)
	}

	return item.AvailableQuantity
}

func TestCreateOrder(t *testing.T) {
	svc, store := newTestService(t)

	o, err := svc.CreateOrder(context.Background(), newRequest(
		orderitem.Line{ItemID: 101, Quantity: 2},
		orderitem.Line{ItemID: 102, Quantity: 1},
	))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if o.ID != 1 {
		t.Errorf("first order id = %d, want 1", o.ID)
	}
	if got := o.TotalAmount.StringFixed(2); got != "480.00" {
		t.Errorf("total = %s, want 480.00", got)
	}
	if o.Status != order.StatusPending {
		t.Errorf("status = %s, want pending", o.Status)
	}
	if o.RestaurantName != "Spice Route" {
		t.Errorf("restaurant name = %q", o.RestaurantName)
	}
	if len(o.Items) != 2 || !o.Items[0].Subtotal.Equal(decimal.NewFromInt(440)) || o.Items[1].Name != "Garlic Naan" {
		t.Errorf("unexpected items: %+v", o.Items)
	}

	wantCreated := fixedNow.Truncate(time.Microsecond)
	if !o.CreatedAt.Equal(wantCreated) {
		t.Errorf("created_at = %v, want %v", o.CreatedAt, wantCreated)
	}
	if o.EstimatedDeliveryTime == nil || !o.EstimatedDeliveryTime.Equal(wantCreated.Add(35*time.Minute)) {
		t.Errorf("eta = %v, want created_at + 35m", o.EstimatedDeliveryTime)
	}

	if got := stockOf(t, store, 101); got != 3 {
		t.Errorf("stock of 101 = %d, want 3", got)
	}
	if got := stockOf(t, store, 102); got != 9 {
		t.Errorf("stock of 102 = %d, want 9", got)
	}
}

func TestCreateOrderRoundsTotal(t *testing.T) {
	svc, _ := newTestService(t)

	o, err := svc.CreateOrder(context.Background(), newRequest(orderitem.Line{ItemID: 103, Quantity: 3}))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if !o.Items[0].Subtotal.Equal(decimal.RequireFromString("59.985")) {
		t.Errorf("subtotal = %s, want unrounded 59.985", o.Items[0].Subtotal)
	}
	if got := o.TotalAmount.StringFixed(2); got != "59.99" {
		t.Errorf("total = %s, want 59.99", got)
	}
}

func TestCreateOrderErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     order.CreateRequest
		wantErr error
	}{
		{
			name:    "zero quantity -> InvalidQuantity",
			req:     newRequest(orderitem.Line{ItemID: 101, Quantity: 0}),
			wantErr: order.ErrInvalidQuantity,
		},
		{
			name:    "negative quantity -> InvalidQuantity",
			req:     newRequest(orderitem.Line{ItemID: 102, Quantity: -1}),
			wantErr: order.ErrInvalidQuantity,
		},
		{
			name:    "quantity above stock -> InsufficientStock",
			req:     newRequest(orderitem.Line{ItemID: 101, Quantity: 999}),
			wantErr: catalog.ErrInsufficientStock,
		},
		{
			name: "repeated lines above stock -> InsufficientStock",
			req: newRequest(
				orderitem.Line{ItemID: 101, Quantity: 3},
				orderitem.Line{ItemID: 101, Quantity: 3},
			),
			wantErr: catalog.ErrInsufficientStock,
		},
		{
			name: "unknown restaurant -> RestaurantNotFound",
			req: func() order.CreateRequest {
				r := newRequest(orderitem.Line{ItemID: 101, Quantity: 1})
				r.RestaurantID = 999

				return r
			}(),
			wantErr: catalog.ErrRestaurantNotFound,
		},
		{
			name: "unknown restaurant with no items -> RestaurantNotFound",
			req: func() order.CreateRequest {
				r := newRequest()
				r.RestaurantID = 999

				return r
			}(),
			wantErr: catalog.ErrRestaurantNotFound,
		},
		{
			name: "unknown restaurant with item id 0 -> RestaurantNotFound",
			req: func() order.CreateRequest {
				r := newRequest(orderitem.Line{ItemID: 0, Quantity: 1})
				r.RestaurantID = 999

				return r
			}(),
			wantErr: catalog.ErrRestaurantNotFound,
		},
		{
			name: "unknown restaurant with blank customer -> RestaurantNotFound",
			req: func() order.CreateRequest {
				r := newRequest(orderitem.Line{ItemID: 101, Quantity: 1})
				r.RestaurantID = 999
				r.CustomerName = ""

				return r
			}(),
			wantErr: catalog.ErrRestaurantNotFound,
		},
		{
			name:    "item id 0 -> ItemNotFound",
			req:     newRequest(orderitem.Line{ItemID: 0, Quantity: 1}),
			wantErr: catalog.ErrItemNotFound,
		},
		{
			name:    "unknown item -> ItemNotFound",
			req:     newRequest(orderitem.Line{ItemID: 555, Quantity: 1}),
			wantErr: catalog.ErrItemNotFound,
		},
		{
			name:    "unknown item is reported before bad quantity",
			req:     newRequest(orderitem.Line{ItemID: 555, Quantity: 0}),
			wantErr: catalog.ErrItemNotFound,
		},
		{
			name:    "no items -> InvalidInput",
			req:     newRequest(),
			wantErr: order.ErrInvalidInput,
		},
		{
			name: "missing customer name -> InvalidInput",
			req: func() order.CreateRequest {
				r := newRequest(orderitem.Line{ItemID: 101, Quantity: 1})
				r.CustomerName = "  "

				return r
			}(),
			wantErr: order.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)

			_, err := svc.CreateOrder(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}

			if got := stockOf(t, store, 101); got != 5 {
				t.Errorf("stock of 101 changed to %d after a failed order", got)
			}

			orders, err := svc.ListOrders(context.Background())
			if err != nil {
				t.Fatalf("ListOrders: %v", err)
			}
			if len(orders) != 0 {
				t.Errorf("failed order was stored: %+v", orders)
			}
		})
	}
}

func TestOrderIDsIncrease(t *testing.T) {
	svc, _ := newTestService(t)

	var last int64
	for i := 0; i < 4; i++ {
		o, err := svc.CreateOrder(context.Background(), newRequest(orderitem.Line{ItemID: 102, Quantity: 1}))
		if err != nil {
			t.Fatalf("CreateOrder #%d: %v", i, err)
		}
		if o.ID != last+1 {
			t.Fatalf("order #%d got id %d, want %d", i, o.ID, last+1)
		}
		last = o.ID
	}
}

func TestGetOrderMatchesCreate(t *testing.T) {
	svc, _ := newTestService(t)

	note := "ring twice"
	req := newRequest(orderitem.Line{ItemID: 101, Quantity: 1})
	req.SpecialInstructions = &note

	created, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	got, err := svc.GetOrder(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if !reflect.DeepEqual(created, got) {
		t.Errorf("GetOrder = %+v, want %+v", got, created)
	}

	if _, err := svc.GetOrder(context.Background(), 42); !errors.Is(err, order.ErrOrderNotFound) {
		t.Errorf("want ErrOrderNotFound, got %v", err)
	}
}

func TestListOrders(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	if _, err := memory.NewCatalogRepository(store).CreateRestaurant(ctx, catalog.Restaurant{ID: 2, Name: "Empty"}); err != nil {
		t.Fatalf("create restaurant: %v", err)
	}

	first, err := svc.CreateOrder(ctx, newRequest(orderitem.Line{ItemID: 102, Quantity: 1}))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := svc.CreateOrder(ctx, newRequest(orderitem.Line{ItemID: 102, Quantity: 1})); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, first.ID, order.StatusUpdate{Status: order.StatusConfirmed}); err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}

	all, err := svc.ListOrders(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListOrders = %d orders, %v", len(all), err)
	}

	byRestaurant, err := svc.ListOrdersByRestaurant(ctx, 1)
	if err != nil || len(byRestaurant) != 2 {
		t.Errorf("ListOrdersByRestaurant(1) = %d orders, %v", len(byRestaurant), err)
	}

	empty, err := svc.ListOrdersByRestaurant(ctx, 2)
	if err != nil || len(empty) != 0 {
		t.Errorf("ListOrdersByRestaurant(2) = %d orders, %v", len(empty), err)
	}

	confirmed, err := svc.ListOrdersByStatus(ctx, order.StatusConfirmed)
	if err != nil || len(confirmed) != 1 || confirmed[0].ID != first.ID {
		t.Errorf("ListOrdersByStatus(confirmed) = %+v, %v", confirmed, err)
	}

	if _, err := svc.ListOrdersByStatus(ctx, order.Status("lost")); !errors.Is(err, order.ErrInvalidStatus) {
		t.Errorf("want ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateOrderStatusETA(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, newRequest(orderitem.Line{ItemID: 101, Quantity: 1}))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	kept, err := svc.UpdateOrderStatus(ctx, created.ID, order.StatusUpdate{Status: order.StatusConfirmed})
	if err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	if kept.Status != order.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", kept.Status)
	}
	if !kept.EstimatedDeliveryTime.Equal(*created.EstimatedDeliveryTime) {
		t.Errorf("eta changed without a new value: %v", kept.EstimatedDeliveryTime)
	}

	newETA := time.Date(2025, 3, 1, 21, 0, 0, 0, time.FixedZone("CET", 3600))
	moved, err := svc.UpdateOrderStatus(ctx, created.ID, order.StatusUpdate{
		Status:                order.StatusPreparing,
		EstimatedDeliveryTime: &newETA,
	})
	if err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	if !moved.EstimatedDeliveryTime.Equal(newETA) {
		t.Errorf("eta = %v, want %v", moved.EstimatedDeliveryTime, newETA)
	}
	if moved.EstimatedDeliveryTime.Location() != time.UTC {
		t.Errorf("eta not normalized to UTC: %v", moved.EstimatedDeliveryTime)
	}
	if !moved.TotalAmount.Equal(created.TotalAmount) || moved.CreatedAt != created.CreatedAt {
		t.Error("status update changed immutable fields")
	}

	stored, err := svc.GetOrder(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if !reflect.DeepEqual(stored, moved) {
		t.Errorf("stored order %+v differs from update result %+v", stored, moved)
	}
}

func TestUpdateOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []order.Status
		next    order.Status
		wantErr error
	}{
		{name: "pending -> confirmed", next: order.StatusConfirmed},
		{name: "pending -> delivered skips ahead", next: order.StatusDelivered},
		{name: "pending -> cancelled", next: order.StatusCancelled},
		{name: "pending -> pending moves eta", next: order.StatusPending},
		{
			name:    "preparing -> confirmed goes back",
			path:    []order.Status{order.StatusPreparing},
			next:    order.StatusConfirmed,
			wantErr: order.ErrInvalidStatusTransition,
		},
		{
			name:    "delivered -> cancelled",
			path:    []order.Status{order.StatusDelivered},
			next:    order.StatusCancelled,
			wantErr: order.ErrInvalidStatusTransition,
		},
		{
			name:    "cancelled -> confirmed",
			path:    []order.Status{order.StatusCancelled},
			next:    order.StatusConfirmed,
			wantErr: order.ErrInvalidStatusTransition,
		},
		{
			name:    "unknown status",
			next:    order.Status("teleported"),
			wantErr: order.ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()

			created, err := svc.CreateOrder(ctx, newRequest(orderitem.Line{ItemID: 102, Quantity: 1}))
			if err != nil {
				t.Fatalf("CreateOrder: %v", err)
			}
			for _, st := range tt.path {
				if _, err := svc.UpdateOrderStatus(ctx, created.ID, order.StatusUpdate{Status: st}); err != nil {
					t.Fatalf("move to %s: %v", st, err)
				}
			}

			_, err = svc.UpdateOrderStatus(ctx, created.ID, order.StatusUpdate{Status: tt.next})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUpdateOrderStatusNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateOrderStatus(context.Background(), 7, order.StatusUpdate{Status: order.StatusConfirmed})
	if !errors.Is(err, order.ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound, got %v", err)
	}
}

func TestConcurrentOrdersDoNotOversell(t *testing.T) {
	svc, store := newTestService(t)

	const workers = 10

	var (
		mu        sync.Mutex
		succeeded int
		rejected  int
	)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := svc.CreateOrder(context.Background(), newRequest(orderitem.Line{ItemID: 101, Quantity: 5}))

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, catalog.ErrInsufficientStock):
				rejected++
			default:
				return err
			}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if succeeded != 1 || rejected != workers-1 {
		t.Errorf("succeeded = %d, rejected = %d; want 1 and %d", succeeded, rejected, workers-1)
	}
	if got := stockOf(t, store, 101); got != 0 {
		t.Errorf("stock of 101 = %d, want 0", got)
	}
}

func TestConcurrentStatusUpdatesKeepTerminalState(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, newRequest(orderitem.Line{ItemID: 102, Quantity: 1}))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, created.ID, order.StatusUpdate{Status: order.StatusOutForDelivery}); err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}

	targets := []order.Status{order.StatusDelivered, order.StatusCancelled}

	var (
		mu        sync.Mutex
		winners   []order.Status
		conflicts int
	)

	var g errgroup.Group
	for _, target := range targets {
		g.Go(func() error {
			_, err := svc.UpdateOrderStatus(ctx, created.ID, order.StatusUpdate{Status: target})

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				winners = append(winners, target)
			case errors.Is(err, order.ErrInvalidStatusTransition):
				conflicts++
			default:
				return err
			}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(winners) != 1 || conflicts != 1 {
		t.Fatalf("winners = %v, conflicts = %d; want one of each", winners, conflicts)
	}

	got, err := svc.GetOrder(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != winners[0] {
		t.Errorf("status = %s, want %s", got.Status, winners[0])
	}
}

func TestOrderEventsAreEnqueued(t *testing.T) {
	svc, store := newTestService(t, WithEvents("food-orders", 5))
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, newRequest(orderitem.Line{ItemID: 101, Quantity: 1}))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, created.ID, order.StatusUpdate{Status: order.StatusConfirmed}); err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	if _, err := svc.CreateOrder(ctx, newRequest(orderitem.Line{ItemID: 101, Quantity: 999})); err == nil {
		t.Fatal("oversized order must fail")
	}

	pending, err := memory.NewOutboxRepository(store).GetPendingMessages(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingMessages: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("want 2 outbox messages, got %d", len(pending))
	}

	keys := map[string]bool{}
	for _, msg := range pending {
		keys[msg.RoutingKey] = true
		if msg.ExchangeName != "food-orders" || msg.MaxRetries != 5 || msg.MessageID == "" {
			t.Errorf("unexpected message: %+v", msg)
		}
	}
	if !keys[outbox.EventOrderCreated] || !keys[outbox.EventOrderStatusChanged] {
		t.Errorf("routing keys = %v", keys)
	}
}

func TestEventsDisabledByDefault(t *testing.T) {
	svc, store := newTestService(t)

	if _, err := svc.CreateOrder(context.Background(), newRequest(orderitem.Line{ItemID: 101, Quantity: 1})); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	pending, err := memory.NewOutboxRepository(store).GetPendingMessages(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetPendingMessages: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("want empty outbox, got %d messages", len(pending))
	}
}
