package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/kestrel/internal/middleware"
	"github.com/kestrelhq/kestrel/internal/services"
	"github.com/kestrelhq/kestrel/pkg/response"

	apperrors "github.com/kestrelhq/kestrel/pkg/errors"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// viewerFrom extracts the authenticated identity placed by the auth
// middleware. A missing identity writes the 401 and returns false.
func viewerFrom(c *gin.Context) (services.Viewer, bool) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return services.Viewer{}, false
	}
	return services.Viewer{
		UserID: userID,
		Role:   c.GetString(middleware.CtxUserRoleKey),
	}, true
}

// paginationMeta builds the standard list metadata block.
func paginationMeta(page, perPage int, total int64) *response.Meta {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}
