package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klinkercommerce/accounting/internal/auth"
	"github.com/klinkercommerce/accounting/internal/booking"
	"github.com/klinkercommerce/accounting/internal/config"
	"github.com/klinkercommerce/accounting/internal/database"
	"github.com/klinkercommerce/accounting/internal/export"
	adminhandlers "github.com/klinkercommerce/accounting/internal/handlers/admin"
	"github.com/klinkercommerce/accounting/internal/middleware"
	"github.com/klinkercommerce/accounting/internal/pricing"
	"github.com/klinkercommerce/accounting/internal/services/orders"
	"github.com/klinkercommerce/accounting/internal/vat"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	// Connect to database
	pool, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	slog.Info("database connected")

	// Run migrations
	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	slog.Info("migrations complete")

	// Auth services
	sessionMgr := auth.NewSessionManager(pool, cfg.SessionTTL)
	authService := auth.NewService(pool, sessionMgr, logger)

	// VAT settings cache and resolver
	vatCache := vat.NewSettingsCache()
	vatRepo := vat.NewRepository(pool, vatCache, logger)
	if err := vatRepo.Reload(context.Background()); err != nil {
		slog.Error("failed to load vat settings", "error", err)
		os.Exit(1)
	}
	resolver := vat.NewResolverForCountry(vatCache, cfg.Booking.TargetCountry, logger)

	// Booking pipeline
	mapper := booking.NewMapper(nil, booking.RevenueShareEstimator{
		Share: decimal.NewFromFloat(cfg.Booking.CostShare),
	}, logger)
	normalizeOpts := booking.NormalizeOptions{Resolver: resolver}
	if cfg.Booking.MissingRateStandard {
		normalizeOpts.MissingRateFallback = booking.FallbackStandard
	}

	// Pricing
	shippingCfg := pricing.ShippingConfig{
		BaseCost:              decimal.NewFromFloat(cfg.Booking.ShippingBaseCost),
		FreeShippingThreshold: decimal.NewFromFloat(cfg.Booking.FreeShippingThreshold),
	}

	// Services
	orderSvc := orders.NewService(pool, logger)
	exportSvc := export.NewService(pool, mapper, logger)

	// Handlers
	authHandler := adminhandlers.NewAuthHandler(authService, logger)
	settingsHandler := adminhandlers.NewSettingsHandler(vatRepo, logger)
	ordersHandler := adminhandlers.NewOrdersHandler(orderSvc, logger)
	bookingsHandler := adminhandlers.NewBookingsHandler(orderSvc, exportSvc, normalizeOpts, logger)
	quotesHandler := adminhandlers.NewQuotesHandler(orderSvc, resolver, shippingCfg, logger)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /admin/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})

	// Public routes (login/logout)
	authHandler.RegisterRoutes(mux)

	// Protected admin routes
	protectedMux := http.NewServeMux()
	settingsHandler.RegisterRoutes(protectedMux)
	ordersHandler.RegisterRoutes(protectedMux)
	bookingsHandler.RegisterRoutes(protectedMux)
	quotesHandler.RegisterRoutes(protectedMux)
	mux.Handle("/admin/", middleware.RequireAuth(authService)(protectedMux))

	// Global middleware stack
	var chain http.Handler = mux
	chain = middleware.SecurityHeaders(chain)
	chain = middleware.Recover(logger)(chain)
	chain = middleware.RequestLogger(logger)(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      chain,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		slog.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
