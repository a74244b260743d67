package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/edu-platform/platform-api/internal/api/handler"
	"github.com/edu-platform/platform-api/internal/api/metrics"
	"github.com/edu-platform/platform-api/internal/api/middleware"
	"github.com/edu-platform/platform-api/internal/core/ports"
)

// Dependencies is everything the HTTP layer needs. It is built once by the
// application root.
type Dependencies struct {
	AuthService        ports.AuthService
	Tokens             ports.TokenStore
	Authenticator      ports.Authenticator
	AdminAuthenticator ports.Authenticator
	HealthChecks       map[string]handler.PingFunc
	Log                zerolog.Logger

	// Registerer and Gatherer enable HTTP metrics and GET /metrics when set.
	// The auth counters register with Registerer too, so NewRouter must be
	// called once per registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	// Swagger serves the API docs under /swagger/.
	Swagger bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	if deps.Registerer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "http",
			Registerer: deps.Registerer,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}))
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
			Gatherer: deps.Gatherer,
		}))
	}

	m := metrics.New(deps.Registerer)
	authHandler := handler.NewAuthHandler(deps.AuthService, deps.Tokens, m)
	adminHandler := handler.NewAdminHandler(deps.AuthService, deps.Tokens, m)
	userAuth := middleware.APIKey(deps.Authenticator, middleware.ScopeUser, m)
	adminAuth := middleware.APIKey(deps.AdminAuthenticator, middleware.ScopeAdmin, m)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)
	e.GET("/auth/user", authHandler.User, userAuth)
	e.GET("/auth/token", authHandler.Token, userAuth)

	// --- Admin routes ---
	admin := e.Group("/admin", adminAuth)
	admin.POST("/users", adminHandler.CreateUser)
	admin.GET("/tokens", adminHandler.ListTokens)
	admin.DELETE("/users/:id/tokens", adminHandler.RevokeTokens)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.HealthChecks)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	if deps.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
