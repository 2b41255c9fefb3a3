package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Seed         SeedConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME, default=sweet-shop"`
	Env                   string `env:"APP_ENV, default=development"`
	Host                  string `env:"APP_HOST, default=0.0.0.0"`
	Port                  string `env:"APP_PORT, default=8080"`
	Version               string `env:"APP_VERSION, default=dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS, default=30"`
	APIPrefix             string `env:"API_PREFIX, default=/api"`
	CORSOrigins           string `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:5173"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER, default=postgres"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS, default=10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS, default=2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS, default=true"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS, default=30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS, default=300"`
}

// MongoConfig holds MongoDB connection values.
type MongoConfig struct {
	URI            string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database       string `env:"MONGO_DB, default=sweet_shop"`
	TimeoutSeconds int    `env:"MONGO_TIMEOUT_SECONDS, default=10"`
}

// RedisConfig holds Redis connection values. An empty Addr keeps the token
// revocation list in process memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string `env:"LOG_LEVEL, default=info"`
	Encoding string `env:"LOG_ENCODING, default=json"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string `env:"AUTH_JWT_SECRET, default=dev-secret"`
	AccessTokenTTLMinutes int    `env:"AUTH_ACCESS_TOKEN_TTL_MINUTES, default=1440"`
	BcryptCost            int    `env:"AUTH_BCRYPT_COST, default=10"`
	VerifySubject         bool   `env:"AUTH_VERIFY_SUBJECT, default=false"`
}

// SeedConfig describes the bootstrap administrator account.
type SeedConfig struct {
	AdminEmail    string `env:"SEED_ADMIN_EMAIL, default=admin@example.com"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD"`
	OnStart       bool   `env:"SEED_ADMIN_ON_START, default=false"`
}

// NotificationConfig controls low-stock alerts.
type NotificationConfig struct {
	WebhookURL        string `env:"NOTIFY_WEBHOOK_URL"`
	LowStockThreshold int64  `env:"STOCK_LOW_THRESHOLD, default=5"`
	QueueSize         int    `env:"NOTIFY_QUEUE_SIZE, default=64"`
}

// Load reads configuration from the environment, after merging an optional
// .env file, applying defaults where possible.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom processes configuration from the given lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres driver")
		}
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if !c.IsDevelopment() && c.Auth.JWTSecret == "dev-secret" {
		return errors.New("AUTH_JWT_SECRET must be set outside development")
	}
	return nil
}

// IsDevelopment reports whether the service runs in the development env.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.Env, "development")
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AllowedOrigins splits the comma-separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	parts := strings.Split(a.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// TokenTTL returns the access token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// Timeout returns the connect timeout for MongoDB.
func (m MongoConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}
