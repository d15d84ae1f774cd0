package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/kestrel/internal/middleware"
	"github.com/kestrelhq/kestrel/internal/services"
	"github.com/kestrelhq/kestrel/pkg/errors"
	"github.com/kestrelhq/kestrel/pkg/response"
)

// AuthHandler exposes login and profile endpoints.
type AuthHandler struct {
	service *services.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login authenticates with email/password and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var payload struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	result, err := h.service.Login(requestContext(c), services.LoginInput{
		Email:    payload.Email,
		Password: payload.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.service.Me(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}
