package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edu-platform/platform-api/internal/api/metrics"
	"github.com/edu-platform/platform-api/internal/core/domain"
	"github.com/edu-platform/platform-api/internal/core/ports"
)

// AdminHandler serves the /admin routes. Every route sits behind the
// admin-gated authenticator.
type AdminHandler struct {
	authService ports.AuthService
	tokens      ports.TokenStore
	metrics     *metrics.Metrics
}

func NewAdminHandler(authService ports.AuthService, tokens ports.TokenStore, m *metrics.Metrics) *AdminHandler {
	return &AdminHandler{authService: authService, tokens: tokens, metrics: m}
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN CUSTOMER"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type tokenResponse struct {
	Key  string       `json:"key"`
	User userResponse `json:"user"`
}

type deletedResponse struct {
	Deleted int64 `json:"deleted"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

// CreateUser registers a new account. Admin accounts receive a token immediately.
//
// @Summary      Create user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     APIKey
// @Param        body  body      createUserRequest  true  "New user"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Failure      409   {object}  errorBody
// @Failure      422   {object}  errorBody
// @Router       /admin/users [post]
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// ListTokens returns every token with its owner.
//
// @Summary      List tokens
// @Tags         admin
// @Produce      json
// @Security     APIKey
// @Success      200  {array}   tokenResponse
// @Failure      401  {object}  errorBody
// @Router       /admin/tokens [get]
func (h *AdminHandler) ListTokens(c echo.Context) error {
	tokens, err := h.tokens.List(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]tokenResponse, 0, len(tokens))
	for _, t := range tokens {
		item := tokenResponse{Key: t.Key, User: userResponse{ID: t.UserID}}
		if t.User != nil {
			item.User = toUserResponse(t.User)
		}
		resp = append(resp, item)
	}
	return c.JSON(http.StatusOK, resp)
}

// RevokeTokens deletes all tokens of a user. The user's next login issues a new one.
//
// @Summary      Revoke user tokens
// @Tags         admin
// @Produce      json
// @Security     APIKey
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  deletedResponse
// @Failure      401  {object}  errorBody
// @Router       /admin/users/{id}/tokens [delete]
func (h *AdminHandler) RevokeTokens(c echo.Context) error {
	n, err := h.tokens.DeleteForUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	h.metrics.TokensRevoked.Add(float64(n))
	return c.JSON(http.StatusOK, deletedResponse{Deleted: n})
}
