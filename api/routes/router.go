package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blissmart/marketplace-backend/api/controllers"
	"github.com/blissmart/marketplace-backend/api/middleware"
	"github.com/blissmart/marketplace-backend/internal/auth"
	"github.com/blissmart/marketplace-backend/internal/cart"
	"github.com/blissmart/marketplace-backend/internal/catalog"
	"github.com/blissmart/marketplace-backend/internal/location"
	"github.com/blissmart/marketplace-backend/internal/notifications"
	"github.com/blissmart/marketplace-backend/internal/orders"
	"github.com/blissmart/marketplace-backend/internal/payments"
	"github.com/blissmart/marketplace-backend/internal/reviews"
	"github.com/blissmart/marketplace-backend/pkg/auth/session"
	"github.com/blissmart/marketplace-backend/pkg/config"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	"github.com/blissmart/marketplace-backend/pkg/logger"
)

// RedisStore is the redis surface used by the HTTP layer.
type RedisStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	IdempotencyKey(scope, id string) string
	RateLimitKey(scope string) string
	Ping(ctx context.Context) error
}

// Dependencies carries the process-scoped handles and services the router serves.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	// Metrics serves /metrics; defaults to the global Prometheus registry.
	Metrics http.Handler

	Auth          auth.Service
	Catalog       catalog.Service
	Cart          cart.Service
	Orders        orders.Service
	Payments      payments.Service
	Notifications notifications.Service
	Reviews       reviews.Service
	Location      location.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	var redisPinger controllers.Pinger
	if deps.Redis != nil {
		redisPinger = deps.Redis
	}

	limits := cfg.AuthRateLimit
	loginPolicy := middleware.NewAuthRateLimitPolicy("login", limits.LoginWindow, limits.LoginIPLimit, limits.LoginPhoneLimit)
	registerPolicy := middleware.NewAuthRateLimitPolicy("register", limits.RegisterWindow, limits.RegisterIPLimit, limits.RegisterPhoneLimit)
	otpPolicy := middleware.NewAuthRateLimitPolicy("otp", limits.OTPWindow, limits.OTPIPLimit, limits.OTPUserLimit, "userId", "phone")

	authenticated := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	self := middleware.RequireSelf("userId", logg)

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    redisPinger,
		}))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(otpPolicy, deps.Redis, logg)).Post("/verify-otp", controllers.AuthVerifyOTP(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(otpPolicy, deps.Redis, logg)).Post("/resend-otp", controllers.AuthResendOTP(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(deps.Catalog, logg))
		r.Get("/category/{category}", controllers.ProductsByCategory(deps.Catalog, logg))
		r.Get("/search/{query}", controllers.SearchProducts(deps.Catalog, logg))
		r.Get("/{productId}", controllers.GetProduct(deps.Catalog, logg))
	})

	r.Route("/api/shops/{shopId}/products", func(r chi.Router) {
		r.Get("/", controllers.ShopProducts(deps.Catalog, logg))
		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/", controllers.ShopUpsertProduct(deps.Catalog, logg))
			r.Delete("/{productId}", controllers.ShopDeleteProduct(deps.Catalog, logg))
		})
	})

	r.Route("/api/reviews", func(r chi.Router) {
		r.Get("/product/{productId}", controllers.ProductReviews(deps.Reviews, logg))
		r.With(authenticated).Post("/", controllers.CreateReview(deps.Reviews, logg))
	})

	r.Route("/api/location", func(r chi.Router) {
		r.Get("/nearby-retailers", controllers.NearbyRetailers(deps.Location, logg))
		r.With(authenticated, middleware.RequireRole(logg, enums.UserRoleRetailer, enums.UserRoleWholesaler)).
			Post("/update-location", controllers.UpdateShopLocation(deps.Location, logg))
	})

	r.Route("/api/cart/{userId}", func(r chi.Router) {
		r.Use(authenticated, self)
		r.Get("/", controllers.CartFetch(deps.Cart, logg))
		r.Delete("/", controllers.CartClear(deps.Cart, logg))
		r.Post("/add", controllers.CartAddItem(deps.Cart, logg))
		r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authenticated)
		r.With(middleware.Idempotency(deps.Redis, logg)).Post("/", controllers.CreateOrder(deps.Orders, logg))
		r.With(self).Get("/user/{userId}", controllers.CustomerOrders(deps.Orders, logg))
		r.With(self, middleware.RequireRole(logg, enums.UserRoleRetailer)).
			Get("/retailer/{userId}", controllers.ShopOrders(deps.Orders, enums.ShopTypeRetail, logg))
		r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
		r.Put("/{orderId}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
	})

	r.Route("/api/payments", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/cod", controllers.PaymentCOD(deps.Payments, logg))
		r.Post("/create-razorpay-order", controllers.PaymentCreateGatewayOrder(deps.Payments, logg))
		r.Post("/verify", controllers.PaymentVerifyGateway(deps.Payments, logg))
		r.Post("/track-upi-attempt", controllers.PaymentTrackUPI(deps.Payments, logg))
		r.Post("/verify-upi-payment", controllers.PaymentVerifyUPI(deps.Payments, logg))
		r.Post("/cancel-upi-payment", controllers.PaymentCancelUPI(deps.Payments, logg))
		r.Get("/order-status/{orderId}", controllers.PaymentOrderStatus(deps.Payments, logg))
	})

	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/save-fcm-token", controllers.SavePushToken(deps.Notifications, logg))
		r.Route("/{userId}", func(r chi.Router) {
			r.Use(self)
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/unread", controllers.UnreadNotificationCount(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	r.Get("/api/wholesaler/public/products", controllers.PublicWholesaleProducts(deps.Catalog, logg))

	r.Route("/api/retailer/{userId}", func(r chi.Router) {
		r.Use(authenticated, middleware.RequireRole(logg, enums.UserRoleRetailer), self)
		mountStorefront(r, deps, enums.ShopTypeRetail)
		r.Get("/purchases", controllers.RetailerPurchases(deps.Orders, logg))
		r.Get("/orders/{orderId}/invoice", controllers.OrderInvoice(deps.Orders, logg))
	})

	r.Route("/api/wholesaler/{userId}", func(r chi.Router) {
		r.Use(authenticated, middleware.RequireRole(logg, enums.UserRoleWholesaler), self)
		mountStorefront(r, deps, enums.ShopTypeWholesale)
	})

	return r
}

// mountStorefront registers the shop, listing and order routes shared by
// retailers and wholesalers.
func mountStorefront(r chi.Router, deps Dependencies, shopType enums.ShopType) {
	logg := deps.Logger
	r.Get("/shop", controllers.StorefrontShop(deps.Catalog, shopType, logg))
	r.Get("/my-products", controllers.StorefrontProducts(deps.Catalog, shopType, logg))
	r.Post("/products", controllers.StorefrontUpsertProduct(deps.Catalog, shopType, logg))
	r.Put("/products/{productId}", controllers.StorefrontUpdateProduct(deps.Catalog, shopType, logg))
	r.Delete("/products/{productId}", controllers.StorefrontDeleteProduct(deps.Catalog, shopType, logg))
	r.Get("/orders", controllers.ShopOrders(deps.Orders, shopType, logg))
	r.Get("/orders/{orderId}", controllers.ShopOrder(deps.Orders, shopType, logg))
	r.Put("/orders/{orderId}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
}
