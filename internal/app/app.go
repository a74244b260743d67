// Package app wires configuration, storage, cache and services into a
// runnable HTTP application.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/gorm"

	"github.com/edu-platform/platform-api/internal/api"
	"github.com/edu-platform/platform-api/internal/api/handler"
	"github.com/edu-platform/platform-api/internal/core/ports"
	"github.com/edu-platform/platform-api/internal/core/service"
	mongoinfra "github.com/edu-platform/platform-api/internal/infrastructure/db/mongo"
	redisinfra "github.com/edu-platform/platform-api/internal/infrastructure/db/redis"
	"github.com/edu-platform/platform-api/internal/infrastructure/db/sqldb"
	"github.com/edu-platform/platform-api/internal/infrastructure/security"
	"github.com/edu-platform/platform-api/internal/pkg/config"
)

// App holds the long-lived components. Build it once with New and release it
// with Close.
type App struct {
	Config             *config.Config
	Log                zerolog.Logger
	Users              ports.UserRepository
	Tokens             *service.TokenStore
	AuthService        *service.AuthService
	Authenticator      *service.APIKeyAuthenticator
	AdminAuthenticator *service.AdminAPIKeyAuthenticator

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	checks     map[string]handler.PingFunc
	closers    []func(context.Context) error
}

type Option func(*App)

// WithMetrics enables HTTP metrics and GET /metrics on the router.
func WithMetrics(reg prometheus.Registerer, g prometheus.Gatherer) Option {
	return func(a *App) {
		a.registerer = reg
		a.gatherer = g
	}
}

// New connects to the configured storage (and Redis when REDIS_ADDR is set)
// and builds the services on top of it.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	a := &App{
		Config: cfg,
		Log:    log,
		checks: make(map[string]handler.PingFunc),
	}
	for _, opt := range opts {
		opt(a)
	}

	tokenRepo, err := a.openStorage(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	var cache ports.PrincipalCache
	if cfg.Redis.Addr != "" {
		rdb, err := redisinfra.Connect(ctx, redisinfra.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		a.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		cache = redisinfra.NewTokenCache(rdb, cfg.Auth.CacheTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Auth.CacheTTL).Msg("principal cache enabled")
	}

	a.Tokens = service.NewTokenStore(tokenRepo, cache, nil, log)
	a.AuthService = service.NewAuthService(a.Users, a.Tokens, security.NewBcryptHasher(cfg.Auth.BcryptCost), log)
	a.Authenticator = service.NewAPIKeyAuthenticator(tokenRepo, cache, log)
	a.AdminAuthenticator = service.NewAdminAPIKeyAuthenticator(a.Authenticator)

	return a, nil
}

func (a *App) openStorage(ctx context.Context) (ports.TokenRepository, error) {
	cfg := a.Config
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		client, db, err := mongoinfra.Connect(ctx, mongoinfra.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		if err := mongoinfra.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}
		a.checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
		a.Users = mongoinfra.NewUserRepository(db)
		a.Log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
		return mongoinfra.NewTokenRepository(db), nil

	case config.DriverMySQL, config.DriverSQLite:
		db, err := sqldb.Open(cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sql handle: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
		if err := sqldb.Migrate(db); err != nil {
			return nil, err
		}
		a.checks[cfg.Storage.Driver] = sqlDB.PingContext
		return a.useSQL(db), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func (a *App) useSQL(db *gorm.DB) ports.TokenRepository {
	a.Users = sqldb.NewUserRepository(db)
	a.Log.Info().Str("driver", a.Config.Storage.Driver).Msg("connected to sql database")
	return sqldb.NewTokenRepository(db)
}

// Router returns the HTTP handler for the application.
func (a *App) Router() *echo.Echo {
	return api.NewRouter(api.Dependencies{
		AuthService:        a.AuthService,
		Tokens:             a.Tokens,
		Authenticator:      a.Authenticator,
		AdminAuthenticator: a.AdminAuthenticator,
		HealthChecks:       a.checks,
		Log:                a.Log,
		Registerer:         a.registerer,
		Gatherer:           a.gatherer,
		Swagger:            !a.Config.IsProduction(),
	})
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
