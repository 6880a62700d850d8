package grpctransport

import (
	"context"
	"net"
	"testing"

	"github.com/corray333/backend-labs/foodorder/internal/config"
	"github.com/corray333/backend-labs/foodorder/internal/dal/memory"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/catalogsvc"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/ordersvc"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func newTestConn(t *testing.T) *grpc.ClientConn {
	t.Helper()

	config.SetDefaults()

	store, err := memory.NewStore("")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := catalogsvc.MustNewCatalogService(catalogsvc.WithMemoryStore(store)).Import(t.Context(), []catalog.Restaurant{{
		ID:   1,
		Name: "Spice Route",
		Items: []catalog.Item{
			{ID: 101, Name: "Butter Chicken", Price: decimal.NewFromInt(220), AvailableQuantity: 5},
			{ID: 102, Name: "Garlic Naan", Price: decimal.NewFromInt(40), AvailableQuantity: 10},
		},
	}}); err != nil {
		t.Fatalf("import catalog: %v", err)
	}

	transport := NewGRPCTransport(ordersvc.MustNewOrderService(ordersvc.WithMemoryStore(store)))
	transport.RegisterServices()

	listener := bufconn.Listen(1 << 20)
	go func() {
		_ = transport.Serve(listener)
	}()
	t.Cleanup(func() {
		_ = transport.Shutdown(context.Background())
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func exampleRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		RestaurantID:    1,
		Items:           []orderitem.Line{{ItemID: 101, Quantity: 2}, {ItemID: 102, Quantity: 1}},
		CustomerName:    "Asha",
		CustomerPhone:   "+1-555-0100",
		DeliveryAddress: "7 Elm St",
	}
}

func TestOrderServiceRoundTrip(t *testing.T) {
	client := NewOrderServiceClient(newTestConn(t))
	ctx := t.Context()

	created, err := client.CreateOrder(ctx, exampleRequest())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if created.ID != 1 || created.Status != order.StatusPending || !created.TotalAmount.Equal(decimal.NewFromInt(480)) {
		t.Errorf("unexpected order: %+v", created)
	}

	got, err := client.GetOrder(ctx, &GetOrderRequest{ID: created.ID})
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.ID != created.ID || len(got.Items) != 2 || got.RestaurantName != "Spice Route" {
		t.Errorf("GetOrder = %+v", got)
	}

	updated, err := client.UpdateOrderStatus(ctx, &UpdateOrderStatusRequest{ID: created.ID, Status: "out_for_delivery"})
	if err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	if updated.Status != order.StatusOutForDelivery {
		t.Errorf("status = %s", updated.Status)
	}

	list, err := client.ListOrders(ctx, &ListOrdersRequest{Status: "out_for_delivery"})
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(list.Orders) != 1 {
		t.Errorf("ListOrders = %+v", list.Orders)
	}

	list, err = client.ListOrders(ctx, &ListOrdersRequest{RestaurantID: 7})
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if list.Orders == nil || len(list.Orders) != 0 {
		t.Errorf("want an empty list, got %+v", list.Orders)
	}
}

func TestOrderServiceErrorCodes(t *testing.T) {
	client := NewOrderServiceClient(newTestConn(t))
	ctx := t.Context()

	if _, err := client.CreateOrder(ctx, exampleRequest()); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := client.UpdateOrderStatus(ctx, &UpdateOrderStatusRequest{ID: 1, Status: "delivered"}); err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{
			name: "unknown restaurant",
			call: func() error {
				req := exampleRequest()
				req.RestaurantID = 999
				_, err := client.CreateOrder(ctx, req)

				return err
			},
			want: codes.NotFound,
		},
		{
			name: "zero quantity",
			call: func() error {
				req := exampleRequest()
				req.Items[0].Quantity = 0
				_, err := client.CreateOrder(ctx, req)

				return err
			},
			want: codes.InvalidArgument,
		},
		{
			name: "not enough stock",
			call: func() error {
				req := exampleRequest()
				req.Items[0].Quantity = 50
				_, err := client.CreateOrder(ctx, req)

				return err
			},
			want: codes.FailedPrecondition,
		},
		{
			name: "missing order",
			call: func() error {
				_, err := client.GetOrder(ctx, &GetOrderRequest{ID: 404})

				return err
			},
			want: codes.NotFound,
		},
		{
			name: "transition out of delivered",
			call: func() error {
				_, err := client.UpdateOrderStatus(ctx, &UpdateOrderStatusRequest{ID: 1, Status: "cancelled"})

				return err
			},
			want: codes.FailedPrecondition,
		},
		{
			name: "unknown status filter",
			call: func() error {
				_, err := client.ListOrders(ctx, &ListOrdersRequest{Status: "lost"})

				return err
			},
			want: codes.InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if got := status.Code(err); got != tt.want {
				t.Fatalf("code = %s, want %s (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	client := healthpb.NewHealthClient(newTestConn(t))

	for _, svc := range []string{"", OrderServiceName} {
		resp, err := client.Check(t.Context(), &healthpb.HealthCheckRequest{Service: svc})
		if err != nil {
			t.Fatalf("Check(%q): %v", svc, err)
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("Check(%q) = %s", svc, resp.GetStatus())
		}
	}
}
