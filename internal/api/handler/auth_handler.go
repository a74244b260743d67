package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edu-platform/platform-api/internal/api/metrics"
	"github.com/edu-platform/platform-api/internal/core/domain"
	"github.com/edu-platform/platform-api/internal/core/ports"
)

const invalidCredentialsMessage = "Invalid email or password."

type AuthHandler struct {
	authService ports.AuthService
	tokens      ports.TokenStore
	metrics     *metrics.Metrics
}

func NewAuthHandler(authService ports.AuthService, tokens ports.TokenStore, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens, metrics: m}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type identityResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Login exchanges credentials for the user's API token.
//
// @Summary      Login
// @Description  Returns the caller's token, creating it on first login. Repeated logins return the same token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Failure      500   {object}  errorBody
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid payload"})
	}

	token, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.metrics.Logins.WithLabelValues(metrics.ResultRejected).Inc()
			return c.JSON(http.StatusUnauthorized, errorBody{Error: invalidCredentialsMessage})
		}
		h.metrics.Logins.WithLabelValues(metrics.ResultError).Inc()
		return err
	}

	h.metrics.Logins.WithLabelValues(metrics.ResultAccepted).Inc()
	return c.JSON(http.StatusOK, loginResponse{Token: token})
}

// User returns the authenticated user's name and email.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     APIKey
// @Success      200  {object}  identityResponse
// @Failure      401  {object}  errorBody
// @Router       /auth/user [get]
func (h *AuthHandler) User(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	return c.JSON(http.StatusOK, identityResponse{Name: user.Name, Email: user.Email})
}

// Token returns the authenticated user's canonical token as a JSON string.
//
// @Summary      Current token
// @Tags         auth
// @Produce      json
// @Security     APIKey
// @Success      201  {string}  string
// @Failure      401  {object}  errorBody
// @Failure      500  {object}  errorBody
// @Router       /auth/token [get]
func (h *AuthHandler) Token(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	tok, err := h.tokens.FindByUser(c.Request().Context(), user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return unauthenticated(c)
		}
		return err
	}

	return c.JSON(http.StatusCreated, tok.Key)
}
