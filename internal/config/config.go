package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingSecret = errors.New("TOKEN_SECRET environment variable is required")
	ErrShortSecret   = errors.New("TOKEN_SECRET must be at least 32 characters long")
	ErrInvalidValue  = errors.New("invalid configuration value")
)

// Config is built once at startup and handed to constructors; nothing reads the
// environment after Load returns.
type Config struct {
	Service   string         `yaml:"service"`
	Env       string         `yaml:"env"`
	PublicURL string         `yaml:"public_url"`
	HTTP      HTTPConfig     `yaml:"http"`
	Postgres  PostgresConfig `yaml:"postgres"`
	Redis     RedisConfig    `yaml:"redis"`
	Kafka     KafkaConfig    `yaml:"kafka"`
	SMTP      SMTPConfig     `yaml:"smtp"`
	Payment   PaymentConfig  `yaml:"payment"`
	Cart      CartConfig     `yaml:"cart"`
	Tokens    TokenConfig    `yaml:"tokens"`
	Admin     AdminConfig    `yaml:"admin"`
	Notify    NotifyConfig   `yaml:"notify"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
}

// PostgresConfig selects the durable stores. An empty URL keeps inventory and
// orders in memory.
type PostgresConfig struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

// RedisConfig selects the session backend. An empty Addr keeps sessions in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig routes notifications through a topic when Brokers is non-empty;
// otherwise the API mails directly.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type SMTPConfig struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	From       string `yaml:"from"`
	AdminEmail string `yaml:"admin_email"`
}

type PaymentConfig struct {
	BaseURL     string        `yaml:"base_url"`
	AccessToken string        `yaml:"access_token"`
	LocationID  string        `yaml:"location_id"`
	Timeout     time.Duration `yaml:"timeout"`
	Sandbox     bool          `yaml:"sandbox"`
}

// CartConfig holds the reservation timeouts.
type CartConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	OrderTimeout  time.Duration `yaml:"order_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	// SessionGrace keeps expired session data readable until a sweep has
	// released it.
	SessionGrace time.Duration `yaml:"session_grace"`
	CookieName    string        `yaml:"cookie_name"`
	CookieSecure  bool          `yaml:"cookie_secure"`
}

type TokenConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type AdminConfig struct {
	User         string `yaml:"user"`
	PasswordHash string `yaml:"password_hash"`
}

type NotifyConfig struct {
	QueueSize int `yaml:"queue_size"`
	Workers   int `yaml:"workers"`
}

// Default returns the configuration used when neither a file nor the environment
// says otherwise.
func Default() Config {
	return Config{
		Service:   "unique-shop",
		Env:       "dev",
		PublicURL: "http://localhost:8080",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			RateLimit:       10,
			RateBurst:       20,
		},
		Kafka: KafkaConfig{
			Topic:   "shop-notifications",
			GroupID: "email-notifier",
		},
		SMTP: SMTPConfig{
			Host:       "localhost",
			Port:       "1025",
			From:       "noreply@example.com",
			AdminEmail: "admin@example.com",
		},
		Payment: PaymentConfig{
			BaseURL: "https://connect.squareupsandbox.com",
			Timeout: 15 * time.Second,
			Sandbox: true,
		},
		Cart: CartConfig{
			Timeout:       3600 * time.Second,
			OrderTimeout:  3600 * time.Second,
			SweepInterval: 6 * time.Hour,
			SessionTTL:    14 * 24 * time.Hour,
			SessionGrace:  24 * time.Hour,
			CookieName:    "sessionid",
		},
		Admin: AdminConfig{
			User: "admin",
		},
		Notify: NotifyConfig{
			QueueSize: 256,
			Workers:   2,
		},
	}
}

// Load layers the optional YAML file at path over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// minGraceSweeps is how many sweeps may be missed before a session's data
// expires underneath its reservations.
const minGraceSweeps = 3

// Validate checks the settings every binary depends on.
func (c Config) Validate() error {
	if c.Tokens.Secret == "" {
		return ErrMissingSecret
	}
	if len(c.Tokens.Secret) < 32 {
		return ErrShortSecret
	}
	if c.Cart.Timeout <= 0 || c.Cart.OrderTimeout <= 0 {
		return fmt.Errorf("%w: cart timeouts must be positive", ErrInvalidValue)
	}
	if c.Cart.SweepInterval <= 0 {
		return fmt.Errorf("%w: sweep interval must be positive", ErrInvalidValue)
	}
	if c.Cart.SessionGrace < minGraceSweeps*c.Cart.SweepInterval {
		return fmt.Errorf("%w: session grace must cover at least %d sweep intervals", ErrInvalidValue, minGraceSweeps)
	}
	if !c.Payment.Sandbox && c.Payment.AccessToken == "" {
		return fmt.Errorf("%w: PAYMENT_ACCESS_TOKEN is required outside sandbox mode", ErrInvalidValue)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Service = getEnv("SERVICE_NAME", cfg.Service)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.PublicURL = strings.TrimRight(getEnv("PUBLIC_URL", cfg.PublicURL), "/")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Postgres.URL = getEnv("DATABASE_URL", cfg.Postgres.URL)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", cfg.Kafka.GroupID)

	cfg.SMTP.Host = getEnv("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = getEnv("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.From = getEnv("SMTP_FROM", cfg.SMTP.From)
	cfg.SMTP.AdminEmail = getEnv("ADMIN_EMAIL", cfg.SMTP.AdminEmail)

	cfg.Payment.BaseURL = getEnv("PAYMENT_BASE_URL", cfg.Payment.BaseURL)
	cfg.Payment.AccessToken = getEnv("PAYMENT_ACCESS_TOKEN", cfg.Payment.AccessToken)
	cfg.Payment.LocationID = getEnv("PAYMENT_LOCATION_ID", cfg.Payment.LocationID)

	cfg.Tokens.Secret = getEnv("TOKEN_SECRET", cfg.Tokens.Secret)
	cfg.Admin.User = getEnv("ADMIN_USER", cfg.Admin.User)
	cfg.Admin.PasswordHash = getEnv("ADMIN_PASSWORD_HASH", cfg.Admin.PasswordHash)

	var err error
	if cfg.Postgres.Migrate, err = envBool("DATABASE_MIGRATE", cfg.Postgres.Migrate); err != nil {
		return err
	}
	if cfg.Redis.DB, err = envInt("REDIS_DB", cfg.Redis.DB); err != nil {
		return err
	}
	if cfg.Payment.Sandbox, err = envBool("PAYMENT_SANDBOX", cfg.Payment.Sandbox); err != nil {
		return err
	}
	if cfg.Payment.Timeout, err = envDuration("PAYMENT_TIMEOUT", cfg.Payment.Timeout); err != nil {
		return err
	}
	if cfg.Cart.Timeout, err = envDuration("CART_TIMEOUT", cfg.Cart.Timeout); err != nil {
		return err
	}
	if cfg.Cart.OrderTimeout, err = envDuration("ORDER_TIMEOUT", cfg.Cart.OrderTimeout); err != nil {
		return err
	}
	if cfg.Cart.SweepInterval, err = envDuration("SWEEP_INTERVAL", cfg.Cart.SweepInterval); err != nil {
		return err
	}
	if cfg.Cart.SessionTTL, err = envDuration("SESSION_TTL", cfg.Cart.SessionTTL); err != nil {
		return err
	}
	if cfg.Cart.SessionGrace, err = envDuration("SESSION_GRACE", cfg.Cart.SessionGrace); err != nil {
		return err
	}
	if cfg.Cart.CookieSecure, err = envBool("SESSION_COOKIE_SECURE", cfg.Cart.CookieSecure); err != nil {
		return err
	}
	if cfg.Tokens.TTL, err = envDuration("TOKEN_TTL", cfg.Tokens.TTL); err != nil {
		return err
	}
	if cfg.Notify.Workers, err = envInt("NOTIFY_WORKERS", cfg.Notify.Workers); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envDuration accepts Go duration strings ("90m") or a bare number of seconds ("3600").
func envDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}
	return d, nil
}

func envInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}
	return n, nil
}

func envBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}
	return b, nil
}
