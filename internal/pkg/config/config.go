package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port           string   `env:"PORT,            default=8080"`
	Env            string   `env:"ENV,             default=development"`
	JWTSecret      string   `env:"JWT_SECRET"`
	LogLevel       string   `env:"LOG_LEVEL,       default=info"`
	ServiceName    string   `env:"SERVICE_NAME,    default=identity"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=http://localhost:3000"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Bus       BusConfig
	Publisher PublisherConfig
	Seed      SeedConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// BusConfig selects the message bus transport for sync events.
type BusConfig struct {
	Driver       string   `env:"BUS_DRIVER,          default=redis"`
	Topic        string   `env:"BUS_TOPIC,           default=identity.user-updated"`
	KafkaBrokers []string `env:"KAFKA_BROKERS,       default=localhost:9092"`
	StreamMaxLen int64    `env:"REDIS_STREAM_MAXLEN, default=100000"`
}

// PublisherConfig is the sync event retry policy and queue sizing.
type PublisherConfig struct {
	MaxRetries     int           `env:"PUBLISH_MAX_RETRIES,     default=3"`
	RetryInterval  time.Duration `env:"PUBLISH_RETRY_INTERVAL,  default=5s"`
	AttemptTimeout time.Duration `env:"PUBLISH_ATTEMPT_TIMEOUT, default=10s"`
	Workers        int           `env:"PUBLISH_WORKERS,         default=8"`
	QueueSize      int           `env:"PUBLISH_QUEUE_SIZE,      default=256"`
}

// SeedConfig describes the administrator ensured at startup.
type SeedConfig struct {
	AdminEmail    string `env:"ADMIN_USER_EMAIL,    default=admin@play.com"`
	AdminPassword string `env:"ADMIN_USER_PASSWORD"`
	AdminGil      int64  `env:"ADMIN_INITIAL_GIL,   default=100"`
	BcryptCost    int    `env:"BCRYPT_COST,         default=10"`
}

// IsDevelopment reports whether developer tooling (pretty logs, swagger) is on.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration from l and validates it.
func LoadFrom(l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Publisher.MaxRetries < 0 {
		return fmt.Errorf("PUBLISH_MAX_RETRIES must be >= 0, got %d", c.Publisher.MaxRetries)
	}
	if c.Publisher.RetryInterval <= 0 {
		return fmt.Errorf("PUBLISH_RETRY_INTERVAL must be positive, got %s", c.Publisher.RetryInterval)
	}
	if c.Seed.AdminGil < 0 {
		return fmt.Errorf("ADMIN_INITIAL_GIL must be >= 0, got %d", c.Seed.AdminGil)
	}
	if c.Seed.AdminPassword == "" {
		return fmt.Errorf("ADMIN_USER_PASSWORD is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}
