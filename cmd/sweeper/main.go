package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/unique-shop/internal/app"
	"github.com/example/unique-shop/internal/config"
	"github.com/example/unique-shop/internal/logging"
	"github.com/example/unique-shop/internal/metrics"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	once := flag.Bool("once", false, "release expired sessions once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.MustNewLogger(cfg.Service+"-sweeper", cfg.Env)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := app.Build(ctx, cfg, logger, metrics.New())
	if err != nil {
		logger.Fatal("sweeper_startup_failed", zap.Error(err))
	}
	defer stack.Close()

	sweep := stack.Sweeper()
	if *once {
		n, err := sweep.SweepOnce(ctx)
		if err != nil {
			logger.Error("sweep_incomplete", zap.Int("sessions", n), zap.Error(err))
			stack.Close()
			os.Exit(1)
		}
		return
	}

	logger.Info("sweeper_started", zap.Duration("interval", cfg.Cart.SweepInterval))
	sweep.Run(ctx)
	logger.Info("sweeper_stopped")
}
