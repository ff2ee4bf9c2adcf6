package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-checkout/api/controllers"
	"github.com/angelmondragon/storefront-checkout/api/middleware"
	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/orders"
	"github.com/angelmondragon/storefront-checkout/internal/payments"
	"github.com/angelmondragon/storefront-checkout/internal/wishlist"
	"github.com/angelmondragon/storefront-checkout/pkg/config"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-checkout/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	metricsRegistry *prometheus.Registry,
	cartService cart.Service,
	paymentsService payments.Service,
	ordersService orders.Service,
	wishlistService wishlist.Service,
) http.Handler {
	var httpMetrics *metrics.HTTPMetrics
	if metricsRegistry != nil {
		httpMetrics = metrics.NewHTTPMetrics(metricsRegistry)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	orderReplay := middleware.Idempotency(idempotencyStore, cfg.Checkout.OrderTTL, logg)
	checkoutReplay := middleware.Idempotency(idempotencyStore, time.Hour, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if metricsRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(logg))

		r.With(orderReplay).Post("/create-order", controllers.PaymentsCreateOrder(paymentsService, logg))
		r.Post("/verify-payment", controllers.PaymentsVerify(paymentsService, cartService, logg))

		r.Route("/v1", func(r chi.Router) {
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(cartService, logg))
				r.Delete("/", controllers.CartClear(cartService, logg))
				r.Post("/items", controllers.CartAddItem(cartService, logg))
				r.Put("/items/{itemId}", controllers.CartSetQuantity(cartService, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(cartService, logg))
				r.Post("/open", controllers.CartSetOpen(cartService, true, logg))
				r.Post("/close", controllers.CartSetOpen(cartService, false, logg))
				r.With(checkoutReplay).Post("/checkout", controllers.CartCheckout(cartService, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistItems(wishlistService, logg))
				r.Post("/", controllers.WishlistAdd(wishlistService, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(wishlistService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(ordersService, logg))
				r.Get("/{gatewayOrderId}", controllers.OrderDetail(ordersService, logg))
			})

			r.Delete("/session", controllers.SessionDelete(cartService, wishlistService, logg))
		})
	})

	return r
}
