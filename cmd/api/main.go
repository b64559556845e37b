package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/learnsphere/coursemarket-backend/api/routes"
	"github.com/learnsphere/coursemarket-backend/internal/audit"
	cartsvc "github.com/learnsphere/coursemarket-backend/internal/cart"
	checkoutsvc "github.com/learnsphere/coursemarket-backend/internal/checkout"
	coursesvc "github.com/learnsphere/coursemarket-backend/internal/courses"
	"github.com/learnsphere/coursemarket-backend/internal/enrollments"
	ordersvc "github.com/learnsphere/coursemarket-backend/internal/orders"
	paymentsvc "github.com/learnsphere/coursemarket-backend/internal/payments"
	"github.com/learnsphere/coursemarket-backend/pkg/config"
	"github.com/learnsphere/coursemarket-backend/pkg/db"
	"github.com/learnsphere/coursemarket-backend/pkg/logger"
	"github.com/learnsphere/coursemarket-backend/pkg/metrics"
	"github.com/learnsphere/coursemarket-backend/pkg/migrate"
	"github.com/learnsphere/coursemarket-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	coursesRepo := coursesvc.NewRepository(dbClient.DB())
	cartRepo := cartsvc.NewRepository(dbClient.DB())
	enrollRepo := enrollments.NewRepository(dbClient.DB())
	ordersRepo := ordersvc.NewRepository(dbClient.DB())
	auditRepo := audit.NewRepository(dbClient.DB())

	coursesService, err := coursesvc.NewService(coursesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create courses service", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(cartRepo, dbClient, coursesService, enrollRepo, cfg.Cart.ExpiryTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	cartValidator, err := cartsvc.NewValidator(coursesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart validator", err)
		os.Exit(1)
	}

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	checkoutService, err := checkoutsvc.NewService(
		dbClient,
		cartRepo,
		ordersRepo,
		enrollRepo,
		cartValidator,
		paymentMetrics,
		logg,
		cfg.Cart.ExpiryTTL,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := ordersvc.NewService(ordersRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := paymentsvc.NewService(
		dbClient,
		ordersRepo,
		cartRepo,
		enrollRepo,
		auditRepo,
		paymentMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Courses:  coursesService,
			Cart:     cartService,
			Checkout: checkoutService,
			Orders:   ordersService,
			Payments: paymentsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
