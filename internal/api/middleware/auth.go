package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edu-platform/platform-api/internal/api/metrics"
	"github.com/edu-platform/platform-api/internal/core/domain"
	"github.com/edu-platform/platform-api/internal/core/ports"
)

const (
	// HeaderAPIKey carries the raw token key. The name is matched exactly.
	HeaderAPIKey = "X-API-Key"
	// UserKey is the echo.Context key holding the authenticated *domain.User.
	UserKey = "user"

	UnauthenticatedMessage = "Invalid or missing token"
)

// Scope labels for metrics.
const (
	ScopeUser  = "user"
	ScopeAdmin = "admin"
)

// APIKey resolves the X-API-Key header through authn and stores the user in
// the context under scope. Rejected requests get 401; storage failures go
// to the error handler.
func APIKey(authn ports.Authenticator, scope string, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := authn.Authenticate(c.Request().Context(), c.Request().Header.Get(HeaderAPIKey))
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					m.Authentications.WithLabelValues(scope, metrics.ResultRejected).Inc()
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": UnauthenticatedMessage})
				}
				m.Authentications.WithLabelValues(scope, metrics.ResultError).Inc()
				return err
			}

			m.Authentications.WithLabelValues(scope, metrics.ResultAccepted).Inc()
			c.Set(UserKey, user)
			return next(c)
		}
	}
}
