package grpctransport

import (
	"context"
	"errors"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// OrderServiceName is the fully qualified gRPC service name.
const OrderServiceName = "foodorder.v1.OrderService"

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, req order.CreateRequest) (order.Order, error)
	GetOrder(ctx context.Context, id int64) (order.Order, error)
	QueryOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, update order.StatusUpdate) (order.Order, error)
}

type CreateOrderRequest struct {
	RestaurantID        int64            `json:"restaurant_id"`
	Items               []orderitem.Line `json:"items"`
	CustomerName        string           `json:"customer_name"`
	CustomerPhone       string           `json:"customer_phone"`
	DeliveryAddress     string           `json:"delivery_address"`
	SpecialInstructions *string          `json:"special_instructions,omitempty"`
}

type GetOrderRequest struct {
	ID int64 `json:"id"`
}

// ListOrdersRequest filters orders. Zero fields match everything.
type ListOrdersRequest struct {
	RestaurantID int64  `json:"restaurant_id,omitempty"`
	Status       string `json:"status,omitempty"`
}

type ListOrdersResponse struct {
	Orders []order.Order `json:"orders"`
}

type UpdateOrderStatusRequest struct {
	ID                    int64      `json:"id"`
	Status                string     `json:"status"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
}

// OrderServiceServer is the server API of foodorder.v1.OrderService.
type OrderServiceServer interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*order.Order, error)
	GetOrder(ctx context.Context, req *GetOrderRequest) (*order.Order, error)
	ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error)
	UpdateOrderStatus(ctx context.Context, req *UpdateOrderStatusRequest) (*order.Order, error)
}

// OrderServer implements the gRPC OrderService.
type OrderServer struct {
	service service
}

// NewOrderServer creates a new OrderServer.
func NewOrderServer(service service) *OrderServer {
	return &OrderServer{
		service: service,
	}
}

// toStatus maps a service error to a gRPC status.
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, catalog.ErrRestaurantNotFound),
		errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, order.ErrOrderNotFound):
		code = codes.NotFound
	case errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidInput):
		code = codes.InvalidArgument
	case errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, order.ErrInvalidStatusTransition):
		code = codes.FailedPrecondition
	default:
		return status.Error(codes.Internal, "internal error")
	}

	return status.Error(code, err.Error())
}

func (s *OrderServer) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*order.Order, error) {
	created, err := s.service.CreateOrder(ctx, order.CreateRequest{
		RestaurantID:        req.RestaurantID,
		Items:               req.Items,
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		DeliveryAddress:     req.DeliveryAddress,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return &created, nil
}

func (s *OrderServer) GetOrder(ctx context.Context, req *GetOrderRequest) (*order.Order, error) {
	o, err := s.service.GetOrder(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}

	return &o, nil
}

func (s *OrderServer) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	filter := order.QueryOrdersModel{}
	if req.RestaurantID != 0 {
		filter.RestaurantIDs = []int64{req.RestaurantID}
	}
	if req.Status != "" {
		st, err := order.ParseStatus(req.Status)
		if err != nil {
			return nil, toStatus(err)
		}
		filter.Statuses = []order.Status{st}
	}

	orders, err := s.service.QueryOrders(ctx, filter)
	if err != nil {
		return nil, toStatus(err)
	}
	if orders == nil {
		orders = []order.Order{}
	}

	return &ListOrdersResponse{Orders: orders}, nil
}

func (s *OrderServer) UpdateOrderStatus(ctx context.Context, req *UpdateOrderStatusRequest) (*order.Order, error) {
	st, err := order.ParseStatus(req.Status)
	if err != nil {
		return nil, toStatus(err)
	}

	updated, err := s.service.UpdateOrderStatus(ctx, req.ID, order.StatusUpdate{
		Status:                st,
		EstimatedDeliveryTime: req.EstimatedDeliveryTime,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return &updated, nil
}

// RegisterOrderServiceServer registers srv on s.
func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&orderServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](
	method string,
	call func(srv OrderServiceServer, ctx context.Context, req *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			if interceptor == nil {
				return call(srv.(OrderServiceServer), ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + OrderServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(OrderServiceServer), ctx, req.(*Req))
			}

			return interceptor(ctx, in, info, handler)
		},
	}
}

var orderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("CreateOrder", OrderServiceServer.CreateOrder),
		unaryHandler("GetOrder", OrderServiceServer.GetOrder),
		unaryHandler("ListOrders", OrderServiceServer.ListOrders),
		unaryHandler("UpdateOrderStatus", OrderServiceServer.UpdateOrderStatus),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "foodorder/v1/order_service",
}

// OrderServiceClient calls foodorder.v1.OrderService over the JSON codec.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)

	return c.cc.Invoke(ctx, "/"+OrderServiceName+"/"+method, in, out, opts...)
}

func (c *OrderServiceClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*order.Order, error) {
	out := new(order.Order)
	if err := c.invoke(ctx, "CreateOrder", in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *OrderServiceClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*order.Order, error) {
	out := new(order.Order)
	if err := c.invoke(ctx, "GetOrder", in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *OrderServiceClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	out := new(ListOrdersResponse)
	if err := c.invoke(ctx, "ListOrders", in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *OrderServiceClient) UpdateOrderStatus(ctx context.Context, in *UpdateOrderStatusRequest, opts ...grpc.CallOption) (*order.Order, error) {
	out := new(order.Order)
	if err := c.invoke(ctx, "UpdateOrderStatus", in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
