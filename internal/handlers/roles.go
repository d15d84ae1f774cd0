package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/kestrel/internal/permissions"
	"github.com/kestrelhq/kestrel/internal/services"
	"github.com/kestrelhq/kestrel/pkg/response"
)

// RoleHandler exposes role and permission catalog endpoints.
type RoleHandler struct {
	service  *services.RoleService
	resolver *permissions.Resolver
}

// NewRoleHandler constructs a RoleHandler.
func NewRoleHandler(service *services.RoleService, resolver *permissions.Resolver) *RoleHandler {
	return &RoleHandler{service: service, resolver: resolver}
}

// List returns every role ordered by privilege.
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.service.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// Get returns one role with its permission set.
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.service.Get(requestContext(c), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// UpdatePermissions replaces a role's permission set.
func (h *RoleHandler) UpdatePermissions(c *gin.Context) {
	var payload struct {
		PermissionIDs []string `json:"permission_ids" validate:"required"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	if err := h.service.UpdateRolePermissions(requestContext(c), c.Param("name"), payload.PermissionIDs); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// Catalog returns the static permission catalog.
func (h *RoleHandler) Catalog(c *gin.Context) {
	response.Success(c, http.StatusOK, permissions.GetAll())
}

// EffectivePermissions returns the permission IDs a user resolves to after
// role, module overrides, and individual grants are applied.
func (h *RoleHandler) EffectivePermissions(c *gin.Context) {
	ids, err := h.resolver.EffectivePermissions(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"permission_ids": ids})
}
