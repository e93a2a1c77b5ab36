package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/longpham-dev/milktea-backend/api/routes"
	"github.com/longpham-dev/milktea-backend/internal/cart"
	"github.com/longpham-dev/milktea-backend/internal/loyalty"
	"github.com/longpham-dev/milktea-backend/internal/orders"
	"github.com/longpham-dev/milktea-backend/internal/payments"
	"github.com/longpham-dev/milktea-backend/internal/pricing"
	"github.com/longpham-dev/milktea-backend/internal/stores"
	"github.com/longpham-dev/milktea-backend/pkg/config"
	"github.com/longpham-dev/milktea-backend/pkg/db"
	"github.com/longpham-dev/milktea-backend/pkg/env"
	"github.com/longpham-dev/milktea-backend/pkg/logger"
	"github.com/longpham-dev/milktea-backend/pkg/metrics"
	"github.com/longpham-dev/milktea-backend/pkg/migrate"
	"github.com/longpham-dev/milktea-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	storeSvc, err := stores.NewService(stores.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create store service", err)
		os.Exit(1)
	}
	calc, err := pricing.NewCalculator(storeSvc, cfg.Shipping)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing calculator", err)
		os.Exit(1)
	}
	loyaltySvc, err := loyalty.NewService(cfg.Loyalty)
	if err != nil {
		logg.Error(context.Background(), "failed to create loyalty service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(ordersRepo, cartRepo, calc, loyaltySvc, dbClient, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	gateway, err := payments.NewGateway(cfg.VNPay, ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}
	settler, err := payments.NewSettler(gateway, ordersRepo, payments.NewRepository(dbClient.DB()), dbClient, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	var devConfirmer *payments.DevConfirmer
	if !cfg.App.IsProd() {
		devConfirmer, err = payments.NewDevConfirmer(cfg.VNPay, ordersRepo, settler)
		if err != nil {
			logg.Error(context.Background(), "failed to create dev confirmer", err)
			os.Exit(1)
		}
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Registry:     registry,
			OrdersSvc:    ordersSvc,
			Gateway:      gateway,
			Settler:      settler,
			DevConfirmer: devConfirmer,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
