package api

import (
	"net/http"

	"github.com/example/unique-shop/internal/api/middleware"
	"github.com/example/unique-shop/internal/auth"
	"github.com/example/unique-shop/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Session middleware.SessionConfig
	Admin   auth.AdminCredentials
	Limiter *middleware.RateLimiter
}

func NewRouter(handlers *Handlers, cfg RouterConfig, logger *zap.Logger, m *metrics.Metrics) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(m))

	r.Get("/healthz", Health)
	r.Handle("/metrics", m.Handler())

	// Storefront
	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(cfg.Session))
		if cfg.Limiter != nil {
			r.Use(cfg.Limiter.Middleware)
		}

		r.Get("/checkout/status/{token}", handlers.OrderStatus)

		r.Group(func(r chi.Router) {
			r.Use(handlers.withCheckout)

			r.Get("/cart", handlers.GetCart)
			r.Post("/cart/add", handlers.AddToCart)
			r.Post("/cart/remove", handlers.RemoveFromCart)
			r.Post("/cart/clear", handlers.ClearCart)

			r.Post("/checkout/order", handlers.PlaceOrder)
			r.Put("/checkout/order", handlers.UpdateOrder)
			r.Get("/checkout/review", handlers.ReviewOrder)
			r.Post("/checkout/pay", handlers.PayOrder)
			r.Post("/checkout/cancel", handlers.CancelOrder)
		})
	})

	// Back office
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.Admin))
		r.Post("/orders/{number}/shipment", handlers.RecordShipment)
		r.Post("/sweep", handlers.Sweep)
	})

	return otelhttp.NewHandler(r, "unique-shop")
}
