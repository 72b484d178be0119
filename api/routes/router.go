package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flintflours/storefront-backend/api/controllers"
	"github.com/flintflours/storefront-backend/api/middleware"
	"github.com/flintflours/storefront-backend/internal/address"
	"github.com/flintflours/storefront-backend/internal/cart"
	"github.com/flintflours/storefront-backend/internal/orders"
	products "github.com/flintflours/storefront-backend/internal/products"
	"github.com/flintflours/storefront-backend/internal/reviews"
	"github.com/flintflours/storefront-backend/pkg/config"
	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/flintflours/storefront-backend/pkg/metrics"
	pkgredis "github.com/flintflours/storefront-backend/pkg/redis"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Products  products.Service
	Cart      cart.Service
	Addresses address.Service
	Orders    orders.Service
	Reviews   reviews.Service
}

// Infra carries the shared clients used by middleware and health checks.
// Any field may be nil in tests.
type Infra struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Registry    *prometheus.Registry
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()

	var httpMetrics *metrics.HTTP
	if infra.Registry != nil {
		httpMetrics = metrics.NewHTTP(infra.Registry)
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.DB, infra.Redis))
	})

	if infra.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(infra.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(svc.Products, logg))
		r.Get("/products/{slug}", controllers.ProductDetail(svc.Products, logg))
		r.Get("/reviews", controllers.ReviewList(svc.Reviews, logg))

		r.With(middleware.OptionalAuth(cfg.Auth, logg)).Get("/cart", controllers.CartFetch(svc.Cart, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Auth, logg))
			r.Use(middleware.Idempotency(infra.Idempotency, logg, cfg.FeatureFlags.IdempotencyTTL))

			r.Post("/cart", controllers.CartAdd(svc.Cart, logg))
			r.Put("/cart", controllers.CartSet(svc.Cart, logg))
			r.Delete("/cart", controllers.CartRemove(svc.Cart, logg))

			r.Get("/addresses", controllers.AddressList(svc.Addresses, logg))
			r.Post("/addresses", controllers.AddressCreate(svc.Addresses, logg))
			r.Put("/addresses/{addressId}", controllers.AddressUpdate(svc.Addresses, logg))

			r.Post("/orders", controllers.OrderCreate(svc.Orders, logg))
			r.Get("/orders", controllers.OrderList(svc.Orders, logg))
			r.Post("/orders/verify", controllers.OrderVerifyPayment(svc.Orders, logg))
			r.Get("/orders/{orderId}", controllers.OrderDetail(svc.Orders, logg))
			r.Post("/orders/{orderId}/payment", controllers.OrderStartPayment(svc.Orders, logg))

			r.Post("/reviews", controllers.ReviewUpsert(svc.Reviews, logg))
		})
	})

	return r
}
