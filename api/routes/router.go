package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/longpham-dev/milktea-backend/api/controllers"
	ordercontrollers "github.com/longpham-dev/milktea-backend/api/controllers/orders"
	paymentcontrollers "github.com/longpham-dev/milktea-backend/api/controllers/payments"
	"github.com/longpham-dev/milktea-backend/api/middleware"
	"github.com/longpham-dev/milktea-backend/internal/orders"
	"github.com/longpham-dev/milktea-backend/internal/payments"
	"github.com/longpham-dev/milktea-backend/pkg/config"
	"github.com/longpham-dev/milktea-backend/pkg/db"
	"github.com/longpham-dev/milktea-backend/pkg/logger"
	pkgredis "github.com/longpham-dev/milktea-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *pkgredis.Client
	Registry     *prometheus.Registry
	OrdersSvc    orders.Service
	Gateway      payments.Gateway
	Settler      payments.Settler
	DevConfirmer *payments.DevConfirmer
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

	// A typed nil *redis.Client must not reach the middleware as a non-nil
	// interface, so the stores are only assigned when the client exists.
	var (
		redisPinger  pkgredis.Pinger
		idemStore    pkgredis.IdempotencyStore
		limiterStore pkgredis.RateLimiterStore
	)
	if deps.Redis != nil {
		redisPinger = deps.Redis
		idemStore = deps.Redis
		limiterStore = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// Gateway callbacks carry their own HMAC and cannot present a bearer token.
	r.Route("/api/v1/payment", func(r chi.Router) {
		r.Use(middleware.CallbackRateLimit(cfg.RateLimit, limiterStore, logg))
		r.Get("/return", paymentcontrollers.Return(deps.Settler, cfg, logg))
		r.Get("/notify", paymentcontrollers.Notify(deps.Settler, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(deps.OrdersSvc, logg))
			r.Get("/", ordercontrollers.List(deps.OrdersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.OrdersSvc, logg))
			r.Put("/{orderId}/cancel", ordercontrollers.Cancel(deps.OrdersSvc, logg))
		})

		r.Post("/payment/create", paymentcontrollers.Create(deps.Gateway, logg))
		if !cfg.App.IsProd() {
			r.Post("/payment/dev-confirm", paymentcontrollers.DevConfirm(deps.DevConfirmer, cfg, logg))
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Post("/orders/{orderId}/status", ordercontrollers.AdminUpdateStatus(deps.OrdersSvc, logg))
		})
	})

	return r
}
