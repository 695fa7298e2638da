package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amezav/storefront-backend/api/controllers"
	"github.com/amezav/storefront-backend/api/middleware"
	authsvc "github.com/amezav/storefront-backend/internal/auth"
	"github.com/amezav/storefront-backend/internal/cart"
	"github.com/amezav/storefront-backend/internal/catalog"
	"github.com/amezav/storefront-backend/internal/categories"
	checkoutsvc "github.com/amezav/storefront-backend/internal/checkout"
	"github.com/amezav/storefront-backend/internal/media"
	"github.com/amezav/storefront-backend/internal/orders"
	"github.com/amezav/storefront-backend/pkg/auth/session"
	"github.com/amezav/storefront-backend/pkg/config"
	"github.com/amezav/storefront-backend/pkg/db"
	"github.com/amezav/storefront-backend/pkg/logger"
	"github.com/amezav/storefront-backend/pkg/metrics"
	"github.com/amezav/storefront-backend/pkg/redis"
	"github.com/amezav/storefront-backend/pkg/storage/gcs"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DBPinger        db.Pinger
	RedisPinger     redis.Pinger
	GCSPinger       gcs.Pinger
	SessionManager  sessionManager
	HTTPMetrics     *metrics.HTTPMetrics
	MetricsGatherer prometheus.Gatherer

	AuthService     authsvc.Service
	RegisterService authsvc.RegisterService
	CatalogService  catalog.Service
	CategoryService categories.Service
	CartService     cart.Service
	CheckoutService checkoutsvc.Service
	OrdersService   orders.Service
	MediaService    media.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger, deps.GCSPinger))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/register", controllers.AuthRegister(deps.RegisterService, deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.SessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.SessionManager, cfg.JWT, logg))
	})

	// Storefront reads are public.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(deps.CatalogService, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(deps.CatalogService, logg))
		r.Get("/products/slug/{slug}", controllers.ProductBySlug(deps.CatalogService, logg))
		r.Get("/categories", controllers.CategoryTree(deps.CategoryService, logg))
		r.Get("/media/{mediaId}/url", controllers.MediaDownloadURL(deps.MediaService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.CartService, logg))
			r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.CartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.CartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.CheckoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.OrdersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.OrdersService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.OrdersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.RequireCatalogManager(logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(deps.CatalogService, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(deps.CatalogService, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(deps.CatalogService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(deps.OrdersService, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(deps.OrdersService, logg))
			r.Patch("/{orderId}/status", controllers.AdminOrderUpdateStatus(deps.OrdersService, logg))
		})

		r.Post("/media/presign", controllers.MediaPresign(deps.MediaService, logg))
	})

	return r
}
