// Package httpsvc публикует корзину, оформление заказов и оплату как JSON API.
package httpsvc

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
	"github.com/vladislavdragonenkov/shop/internal/service/cart"
	"github.com/vladislavdragonenkov/shop/internal/service/checkout"
	"github.com/vladislavdragonenkov/shop/internal/service/payment"
)

const maxBodyBytes = 1 << 20

// Операции, для которых действует Idempotency-Key.
const (
	opCreateOrder     = "order.create"
	opBuyNow          = "order.buy_now"
	opInitiatePayment = "payment.initiate"
)

// Config — параметры HTTP API.
type Config struct {
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	IdempotencyTTL time.Duration
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 30 * time.Second,
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		IdempotencyTTL: defaultIdempotencyTTL,
	}
}

// Server собирает обработчики поверх сервисов.
type Server struct {
	cart     *cart.Service
	checkout *checkout.Service
	payment  *payment.Service
	auth     *Authenticator
	idem     domain.IdempotencyRepository
	metrics  *metrics.HTTPMetrics
	limiter  *rateLimiter
	logger   *log.Entry
	cfg      Config
	idemTTL  time.Duration
	now      func() time.Time
}

// Option настраивает Server.
type Option func(*Server)

// WithIdempotency включает обработку заголовка Idempotency-Key.
func WithIdempotency(repo domain.IdempotencyRepository) Option {
	return func(s *Server) { s.idem = repo }
}

// WithMetrics подключает метрики запросов.
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer создаёт HTTP API.
func NewServer(cfg Config, carts *cart.Service, orders *checkout.Service, payments *payment.Service, auth *Authenticator, opts ...Option) *Server {
	defaults := DefaultConfig()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = defaults.IdempotencyTTL
	}

	s := &Server{
		cart:     carts,
		checkout: orders,
		payment:  payments,
		auth:     auth,
		cfg:      cfg,
		idemTTL:  cfg.IdempotencyTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New().WithField("component", "http")
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	return s
}

// RunMaintenance чистит таблицу лимитера до отмены контекста.
func (s *Server) RunMaintenance(ctx context.Context) {
	if s.limiter == nil {
		return
	}
	s.limiter.run(ctx)
}

// Routes возвращает chi-роутер без трассировки; удобно в тестах.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(instrument(s.metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	if s.limiter != nil {
		r.Use(s.limiter.middleware)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		// Провайдер вызывает эти маршруты без токена; webhook защищён подписью.
		r.Post("/payments/success", s.paymentWebhook)
		r.Get("/payments/cancel", s.cancelPayment)
		r.Post("/payments/cancel", s.cancelPayment)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", s.getCart)
				r.Post("/items", s.addCartItem)
				r.Put("/items/{id}", s.updateCartItem)
				r.Delete("/items/{id}", s.removeCartItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", s.listOrders)
				r.Post("/", s.idempotent(opCreateOrder, s.createOrder))
				r.Post("/buy-now", s.idempotent(opBuyNow, s.buyNow))
				r.Get("/{id}", s.getOrder)
				r.Put("/{id}/cancel", s.cancelOrder)
			})

			r.Post("/payments", s.idempotent(opInitiatePayment, s.initiatePayment))

			r.With(RequireAdmin).Put("/admin/orders/{id}/status", s.setOrderStatus)
		})
	})

	return r
}

// Handler возвращает роутер, обёрнутый трассировкой OpenTelemetry.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.Routes(), "shop-api")
}

func principal(r *http.Request) Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}
