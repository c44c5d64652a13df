package main

import (
	"context"
	"net/http"
	"os"

	"github.com/destelloperu/destello-backend/api/routes"
	"github.com/destelloperu/destello-backend/internal/cart"
	"github.com/destelloperu/destello-backend/internal/categories"
	"github.com/destelloperu/destello-backend/internal/checkout"
	"github.com/destelloperu/destello-backend/internal/inventory"
	"github.com/destelloperu/destello-backend/internal/orders"
	"github.com/destelloperu/destello-backend/internal/products"
	"github.com/destelloperu/destello-backend/internal/users"
	"github.com/destelloperu/destello-backend/internal/wishlist"
	"github.com/destelloperu/destello-backend/pkg/config"
	"github.com/destelloperu/destello-backend/pkg/db"
	"github.com/destelloperu/destello-backend/pkg/env"
	"github.com/destelloperu/destello-backend/pkg/logger"
	"github.com/destelloperu/destello-backend/pkg/migrate"
	"github.com/destelloperu/destello-backend/pkg/outbox"
	"github.com/destelloperu/destello-backend/pkg/redis"
	"github.com/joho/godotenv"
)

const serviceName = "api"

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(logg, "failed to load config", err)
	}

	cfg.Service.Kind = serviceName

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		fatal(logg, "failed to run dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()

	productRepo := products.NewRepository(gormDB)
	categoryRepo := categories.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	wishlistRepo := wishlist.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	inventoryRepo := inventory.NewRepository(gormDB)
	userRepo := users.NewRepository(gormDB)

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, outboxSvc, productRepo)
	if err != nil {
		fatal(logg, "failed to create inventory service", err)
	}

	productService, err := products.NewService(productRepo, dbClient, categoryRepo, inventoryService)
	if err != nil {
		fatal(logg, "failed to create product service", err)
	}

	categoryService, err := categories.NewService(categoryRepo)
	if err != nil {
		fatal(logg, "failed to create category service", err)
	}

	cartService, err := cart.NewService(cartRepo, productRepo)
	if err != nil {
		fatal(logg, "failed to create cart service", err)
	}

	wishlistService, err := wishlist.NewService(wishlistRepo, productRepo)
	if err != nil {
		fatal(logg, "failed to create wishlist service", err)
	}

	orderService, err := orders.NewService(orderRepo, dbClient, inventoryService, outboxSvc, userRepo)
	if err != nil {
		fatal(logg, "failed to create order service", err)
	}

	checkoutService, err := checkout.NewService(cfg.Checkout, orderRepo, dbClient, cartService, inventoryService, outboxSvc, orderService)
	if err != nil {
		fatal(logg, "failed to create checkout service", err)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			productService,
			categoryService,
			cartService,
			checkoutService,
			orderService,
			inventoryService,
			wishlistService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
