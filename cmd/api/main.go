package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/unique-shop/internal/api"
	"github.com/example/unique-shop/internal/api/middleware"
	"github.com/example/unique-shop/internal/app"
	"github.com/example/unique-shop/internal/auth"
	"github.com/example/unique-shop/internal/command"
	"github.com/example/unique-shop/internal/config"
	"github.com/example/unique-shop/internal/infrastructure/store"
	"github.com/example/unique-shop/internal/logging"
	"github.com/example/unique-shop/internal/metrics"
	"github.com/example/unique-shop/internal/query"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	seedPath := flag.String("seed", "", "YAML file of items to stock on startup")
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of a password for ADMIN_PASSWORD_HASH and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.MustNewLogger(cfg.Service, cfg.Env)
	defer logger.Sync()

	if err := run(cfg, *seedPath, logger); err != nil {
		logger.Fatal("api_failed", zap.Error(err))
	}
}

func run(cfg config.Config, seedPath string, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	stack, err := app.Build(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer stack.Close()

	if seedPath != "" {
		if err := seed(ctx, stack.Items, seedPath, logger); err != nil {
			return err
		}
	}
	if cfg.Admin.PasswordHash == "" {
		logger.Warn("admin_disabled", zap.String("reason", "ADMIN_PASSWORD_HASH is not set"))
	}

	sweep := stack.Sweeper()
	go sweep.Run(ctx)

	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst)
	go limiter.Cleanup(ctx)

	handlers := api.NewHandlers(api.Dependencies{
		Commands: command.NewHandler(stack.Items, stack.Carts, stack.Checkout),
		Queries:  query.NewHandler(stack.Checkout, stack.StatusURL(), logger),
		Carts:    stack.Carts,
		Checkout: stack.Checkout,
		Guard:    stack.Guard(),
		Sweeper:  sweep,
		Logger:   logger,
	})
	router := api.NewRouter(handlers, api.RouterConfig{
		Session: middleware.SessionConfig{
			CookieName: cfg.Cart.CookieName,
			Secure:     cfg.Cart.CookieSecure,
			TTL:        cfg.Cart.SessionTTL,
		},
		Admin:   auth.AdminCredentials{User: cfg.Admin.User, PasswordHash: cfg.Admin.PasswordHash},
		Limiter: limiter,
	}, logger, m)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server_started",
			zap.String("addr", cfg.HTTP.Addr),
			zap.Duration("cart_timeout", cfg.Cart.Timeout),
			zap.Duration("order_timeout", cfg.Cart.OrderTimeout),
			zap.Duration("sweep_interval", cfg.Cart.SweepInterval),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("shutting_down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server_stopped")
	return nil
}

func seed(ctx context.Context, dst store.ItemStocker, path string, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	n, err := store.SeedInventory(ctx, dst, f)
	if err != nil {
		return err
	}
	logger.Info("inventory_seeded", zap.String("file", path), zap.Int("items", n))
	return nil
}
