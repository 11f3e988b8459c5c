package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blissmart/marketplace-backend/api/routes"
	"github.com/blissmart/marketplace-backend/internal/auth"
	"github.com/blissmart/marketplace-backend/internal/cart"
	"github.com/blissmart/marketplace-backend/internal/catalog"
	"github.com/blissmart/marketplace-backend/internal/location"
	"github.com/blissmart/marketplace-backend/internal/notifications"
	"github.com/blissmart/marketplace-backend/internal/orders"
	"github.com/blissmart/marketplace-backend/internal/payments"
	"github.com/blissmart/marketplace-backend/internal/reviews"
	"github.com/blissmart/marketplace-backend/internal/shops"
	"github.com/blissmart/marketplace-backend/internal/users"
	"github.com/blissmart/marketplace-backend/pkg/auth/session"
	"github.com/blissmart/marketplace-backend/pkg/background"
	"github.com/blissmart/marketplace-backend/pkg/config"
	"github.com/blissmart/marketplace-backend/pkg/db"
	"github.com/blissmart/marketplace-backend/pkg/logger"
	"github.com/blissmart/marketplace-backend/pkg/maps"
	"github.com/blissmart/marketplace-backend/pkg/metrics"
	"github.com/blissmart/marketplace-backend/pkg/migrate"
	"github.com/blissmart/marketplace-backend/pkg/outbox"
	"github.com/blissmart/marketplace-backend/pkg/push"
	"github.com/blissmart/marketplace-backend/pkg/redis"
)

const (
	serviceName     = "api"
	shutdownTimeout = 20 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(logg, "session manager", err)

	pushSender, err := push.New(context.Background(), cfg.Push, logg)
	if err != nil {
		logg.Error(context.Background(), "push sender unavailable, notifications stay in-app", err)
		pushSender = push.Noop{}
	}

	var geocoder maps.Geocoder
	if cfg.GoogleMaps.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.GoogleMaps.APIKey)
		requireResource(logg, "maps client", err)
		geocoder = mapsClient
	}

	marketplaceMetrics := metrics.NewMarketplace(prometheus.DefaultRegisterer)
	runner := background.NewRunner(cfg.Background.MaxConcurrent, cfg.Background.TaskTimeout, logg)

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	shopsRepo := shops.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		OTPSender:      auth.NewLogSender(logg),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		OTPConfig:      cfg.OTP,
		ExposeOTP:      cfg.OTP.ExposeInResponse && !cfg.App.IsProd(),
		Logger:         logg,
	})
	requireResource(logg, "auth service", err)

	catalogService, err := catalog.NewService(catalogRepo, shopsRepo, usersRepo, logg)
	requireResource(logg, "catalog service", err)

	cartService, err := cart.NewService(cart.NewRepository(conn), catalogRepo)
	requireResource(logg, "cart service", err)

	notificationService, err := notifications.NewService(notifications.ServiceParams{
		Repo:    notifications.NewRepository(conn),
		Users:   usersRepo,
		Push:    pushSender,
		Metrics: marketplaceMetrics,
		Logger:  logg,
	})
	requireResource(logg, "notifications service", err)

	orderService, err := orders.NewService(orders.ServiceParams{
		TxRunner: dbClient,
		Repo:     ordersRepo,
		Shops:    shopsRepo,
		Products: catalogRepo,
		Outbox:   outboxService,
		Notifier: notificationService,
		Tasks:    runner,
		Metrics:  marketplaceMetrics,
		Logger:   logg,
	})
	requireResource(logg, "orders service", err)

	paymentService, err := payments.NewService(payments.ServiceParams{
		TxRunner: dbClient,
		Repo:     ordersRepo,
		Outbox:   outboxService,
		Notifier: notificationService,
		Tasks:    runner,
		Metrics:  marketplaceMetrics,
		Config:   cfg.Payments,
		Logger:   logg,
	})
	requireResource(logg, "payments service", err)

	reviewService, err := reviews.NewService(reviews.NewRepository(conn), catalogRepo, logg)
	requireResource(logg, "reviews service", err)

	locationService, err := location.NewService(location.ServiceParams{
		Shops:    shopsRepo,
		Listings: catalogRepo,
		Owners:   usersRepo,
		Geocoder: geocoder,
		Logger:   logg,
	})
	requireResource(logg, "location service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Sessions:      sessionManager,
			Auth:          authService,
			Catalog:       catalogService,
			Cart:          cartService,
			Orders:        orderService,
			Payments:      paymentService,
			Notifications: notificationService,
			Reviews:       reviewService,
			Location:      locationService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown failed", err)
	}
	if err := runner.Wait(shutdownCtx); err != nil {
		logg.Error(ctx, "background tasks did not drain", err)
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+resource, err)
	os.Exit(1)
}
