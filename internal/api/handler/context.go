package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edu-platform/platform-api/internal/api/middleware"
	"github.com/edu-platform/platform-api/internal/core/domain"
)

// currentUser returns the principal resolved by the APIKey middleware.
// Absence means the route was reached without authentication.
func currentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(middleware.UserKey).(*domain.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorBody{Error: middleware.UnauthenticatedMessage})
}

type errorBody struct {
	Error string `json:"error"`
}
