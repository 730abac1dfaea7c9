// Package app assembles the stores and services shared by the binaries from a
// loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/unique-shop/internal/auth"
	"github.com/example/unique-shop/internal/config"
	"github.com/example/unique-shop/internal/domain/cart"
	"github.com/example/unique-shop/internal/domain/inventory"
	"github.com/example/unique-shop/internal/domain/order"
	"github.com/example/unique-shop/internal/email"
	"github.com/example/unique-shop/internal/infrastructure/kafka"
	"github.com/example/unique-shop/internal/infrastructure/payment"
	"github.com/example/unique-shop/internal/infrastructure/store"
	"github.com/example/unique-shop/internal/metrics"
	"github.com/example/unique-shop/internal/notification"
	"github.com/example/unique-shop/internal/session"
	"github.com/example/unique-shop/internal/sweeper"
	"go.uber.org/zap"
)

// Inventory is the item store as the binaries see it: the repository plus
// stocking for the seed file.
type Inventory interface {
	inventory.Repository
	store.ItemStocker
}

type Stack struct {
	Config     config.Config
	Items      Inventory
	Orders     order.Repository
	Sessions   session.Store
	Carts      *cart.Service
	Checkout   *order.Service
	Dispatcher *notification.Dispatcher
	Metrics    *metrics.Metrics

	logger  *zap.Logger
	closers []func() error
}

// Build connects the configured backends. Postgres and Redis are used when
// configured; otherwise inventory, orders and sessions live in memory.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*Stack, error) {
	s := &Stack{Config: cfg, Metrics: m, logger: logger}

	if err := s.openStores(ctx); err != nil {
		s.Close()
		return nil, err
	}

	s.Dispatcher = notification.NewDispatcher(s.sender(), cfg.Notify.QueueSize, cfg.Notify.Workers, logger, m)
	s.closers = append(s.closers, func() error { s.Dispatcher.Close(); return nil })

	s.Carts = cart.NewService(s.Items, s.Sessions, logger, m)
	s.Checkout = order.NewService(order.Dependencies{
		Orders:   s.Orders,
		Carts:    s.Carts,
		Sessions: s.Sessions,
		Gateway:  s.gateway(),
		Tokens:   auth.NewOrderTokenService(cfg.Tokens.Secret, cfg.Tokens.TTL),
		Notifier: s.Dispatcher,
		Logger:   logger,
		Metrics:  m,
	}, order.Config{
		AdminEmail: cfg.SMTP.AdminEmail,
		StatusURL:  s.StatusURL(),
	})
	return s, nil
}

func (s *Stack) StatusURL() string {
	return s.Config.PublicURL + "/checkout/status/"
}

// Guard builds the per-request activity timeout check.
func (s *Stack) Guard() *sweeper.Guard {
	return sweeper.NewGuard(s.Sessions, s.Checkout, sweeper.Timeouts{
		Cart:  s.Config.Cart.Timeout,
		Order: s.Config.Cart.OrderTimeout,
	}, s.logger, s.Metrics)
}

func (s *Stack) Sweeper() *sweeper.Sweeper {
	return sweeper.New(s.Sessions, s.Carts, s.Checkout, s.Config.Cart.SweepInterval, s.logger, s.Metrics)
}

// Close releases backends in reverse order of opening. The dispatcher drains
// before the producer it may publish to is closed.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Stack) openStores(ctx context.Context) error {
	cfg := s.Config

	if cfg.Postgres.URL != "" {
		db, err := store.ConnectPostgres(cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		if cfg.Postgres.Migrate {
			if err := store.Migrate(db); err != nil {
				return err
			}
			s.logger.Info("migrations_applied")
		}
		s.Items = store.NewPostgresInventoryStore(db)
		s.Orders = store.NewPostgresOrderStore(db)
		s.logger.Info("postgres_connected")
	} else {
		s.Items = store.NewMemoryInventoryStore()
		s.Orders = store.NewMemoryOrderStore()
		s.logger.Warn("using_memory_stores")
	}

	if cfg.Redis.Addr != "" {
		client, err := store.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		s.Sessions = store.NewRedisSessionStore(client, cfg.Cart.SessionTTL).WithGrace(cfg.Cart.SessionGrace)
		s.logger.Info("redis_connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		s.Sessions = store.NewMemorySessionStore(cfg.Cart.SessionTTL)
		s.logger.Warn("using_memory_sessions")
	}
	return nil
}

// sender publishes to Kafka when brokers are configured, leaving delivery to
// the notifier binary. Without brokers the API mails directly.
func (s *Stack) sender() notification.Sender {
	cfg := s.Config
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		s.closers = append(s.closers, producer.Close)
		s.logger.Info("notifications_via_kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
		return notification.NewKafkaSender(producer)
	}
	return notification.NewEmailSender(email.NewService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From))
}

func (s *Stack) gateway() order.PaymentGateway {
	cfg := s.Config.Payment
	if cfg.Sandbox {
		s.logger.Warn("payment_sandbox_enabled")
		return payment.NewSandbox()
	}
	return payment.NewClient(payment.Config{
		BaseURL:     cfg.BaseURL,
		AccessToken: cfg.AccessToken,
		LocationID:  cfg.LocationID,
		Timeout:     cfg.Timeout,
	}, s.logger)
}
