package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/catalogsvc"
	additem "github.com/corray333/backend-labs/foodorder/internal/transport/http/add_item"
	createorder "github.com/corray333/backend-labs/foodorder/internal/transport/http/create_order"
	createrestaurant "github.com/corray333/backend-labs/foodorder/internal/transport/http/create_restaurant"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/docs"
	getorder "github.com/corray333/backend-labs/foodorder/internal/transport/http/get_order"
	listorders "github.com/corray333/backend-labs/foodorder/internal/transport/http/list_orders"
	listrestaurants "github.com/corray333/backend-labs/foodorder/internal/transport/http/list_restaurants"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/render"
	updateitem "github.com/corray333/backend-labs/foodorder/internal/transport/http/update_item"
	updateorderstatus "github.com/corray333/backend-labs/foodorder/internal/transport/http/update_order_status"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/foodorder/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

type orderService interface {
	CreateOrder(ctx context.Context, req order.CreateRequest) (order.Order, error)
	GetOrder(ctx context.Context, id int64) (order.Order, error)
	QueryOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, update order.StatusUpdate) (order.Order, error)
}

type catalogService interface {
	ListRestaurants(ctx context.Context) ([]catalog.Restaurant, error)
	GetRestaurant(ctx context.Context, id int64) (catalog.Restaurant, error)
	ListItems(ctx context.Context, restaurantID int64) ([]catalog.Item, error)
	CreateRestaurant(ctx context.Context, in catalogsvc.NewRestaurant) (catalog.Restaurant, error)
	AddItem(ctx context.Context, restaurantID int64, in catalogsvc.NewItem) (catalog.Item, error)
	UpdateItem(ctx context.Context, restaurantID, itemID int64, patch catalog.ItemPatch) (catalog.Item, error)
}

type HTTPTransport struct {
	server     *http.Server
	router     *chi.Mux
	orderSvc   orderService
	catalogSvc catalogService
}

func NewHTTPTransport(orderSvc orderService, catalogSvc catalogService) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	return &HTTPTransport{
		server:     server,
		router:     router,
		orderSvc:   orderSvc,
		catalogSvc: catalogSvc,
	}
}

// Handler returns the router. Routes must be registered first.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

func (h *HTTPTransport) Run() error {
	slog.Info("Starting HTTP server", "address", h.server.Addr)

	return h.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/healthz", h.healthz)
	docs.Mount(h.router)

	h.router.Route("/api", func(r chi.Router) {
		r.Route("/restaurants", func(r chi.Router) {
			r.Get("/", h.listRestaurants)
			r.Post("/", h.createRestaurant)
			r.Route("/{restaurantID}", func(r chi.Router) {
				r.Get("/", h.getRestaurant)
				r.Get("/items", h.listItems)
				r.Post("/items", h.addItem)
				r.Put("/items/{itemID}", h.updateItem)
				r.Get("/orders", h.listRestaurantOrders)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Get("/status/{status}", h.listOrdersByStatus)
			r.Get("/{orderID}", h.getOrder)
			r.Put("/{orderID}/status", h.updateOrderStatus)
		})
	})
}

func (h *HTTPTransport) healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPTransport) listRestaurants(w http.ResponseWriter, r *http.Request) {
	listrestaurants.ListRestaurants(w, r, h.catalogSvc)
}

func (h *HTTPTransport) getRestaurant(w http.ResponseWriter, r *http.Request) {
	listrestaurants.GetRestaurant(w, r, h.catalogSvc)
}

func (h *HTTPTransport) listItems(w http.ResponseWriter, r *http.Request) {
	listrestaurants.ListItems(w, r, h.catalogSvc)
}

func (h *HTTPTransport) createRestaurant(w http.ResponseWriter, r *http.Request) {
	createrestaurant.CreateRestaurant(w, r, h.catalogSvc)
}

func (h *HTTPTransport) addItem(w http.ResponseWriter, r *http.Request) {
	additem.AddItem(w, r, h.catalogSvc)
}

func (h *HTTPTransport) updateItem(w http.ResponseWriter, r *http.Request) {
	updateitem.UpdateItem(w, r, h.catalogSvc)
}

func (h *HTTPTransport) listRestaurantOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListRestaurantOrders(w, r, h.orderSvc)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orderSvc)
}

func (h *HTTPTransport) listOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrdersByStatus(w, r, h.orderSvc)
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.orderSvc)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.orderSvc)
}

func (h *HTTPTransport) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	updateorderstatus.UpdateOrderStatus(w, r, h.orderSvc)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(middleware.Recoverer)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
