package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverMongo  = "mongo"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

const defaultSQLiteDSN = "platform.db"

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Storage StorageConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Admin   AdminConfig
}

type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER, default=mongo"`
	// DSN is used by the mysql and sqlite drivers.
	DSN string `env:"SQL_DSN"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=platform"`
}

// RedisConfig configures the principal cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type AuthConfig struct {
	CacheTTL   time.Duration `env:"CACHE_TTL,   default=5m"`
	BcryptCost int           `env:"BCRYPT_COST, default=10"`
}

// AdminConfig holds the account created by cmd/createadmin.
type AdminConfig struct {
	Name     string `env:"ADMIN_NAME,     default=admin"`
	Email    string `env:"ADMIN_EMAIL,    default=admin@admin.com"`
	Password string `env:"ADMIN_PASSWORD, default=admin"`
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from l and checks the storage settings.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}

	switch cfg.Storage.Driver {
	case DriverMongo:
	case DriverSQLite:
		if cfg.Storage.DSN == "" {
			cfg.Storage.DSN = defaultSQLiteDSN
		}
	case DriverMySQL:
		if cfg.Storage.DSN == "" {
			return nil, fmt.Errorf("SQL_DSN is required for STORAGE_DRIVER=%s", DriverMySQL)
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}

	return &cfg, nil
}
