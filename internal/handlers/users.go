package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/services"
	"github.com/kestrelhq/kestrel/pkg/response"
)

// UserHandler exposes account management endpoints.
type UserHandler struct {
	service *services.UserService
	roles   *services.RoleService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(service *services.UserService, roles *services.RoleService) *UserHandler {
	return &UserHandler{service: service, roles: roles}
}

// List returns users within the caller's visibility scope.
func (h *UserHandler) List(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 25)

	users, total, err := h.service.List(requestContext(c), viewer, services.ListUsersInput{
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, users, paginationMeta(page, perPage, total))
}

// Get returns one user.
func (h *UserHandler) Get(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	user, err := h.service.Get(requestContext(c), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// Create registers a new account with an initial role.
func (h *UserHandler) Create(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		Email     string `json:"email" validate:"required,email"`
		Password  string `json:"password" validate:"required,min=8"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Phone     string `json:"phone"`
		Role      string `json:"role"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	user, err := h.service.Create(requestContext(c), services.CreateUserInput{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
		Role:      payload.Role,
		CreatedBy: viewer.UserID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// Update applies profile changes.
func (h *UserHandler) Update(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Phone     *string `json:"phone"`
		Avatar    *string `json:"avatar"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	user, err := h.service.Update(requestContext(c), viewer, c.Param("id"), services.UpdateUserInput{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
		Avatar:    payload.Avatar,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// SetActive toggles an account.
func (h *UserHandler) SetActive(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		Active *bool `json:"active" validate:"required"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	if err := h.service.SetActive(requestContext(c), viewer, c.Param("id"), *payload.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// AssignRole replaces the user's active role binding.
func (h *UserHandler) AssignRole(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		Role      string     `json:"role" validate:"required"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	assignedBy := viewer.UserID
	binding, err := h.roles.Assign(requestContext(c), services.AssignRoleInput{
		UserID:       c.Param("id"),
		RoleName:     payload.Role,
		AssignedByID: &assignedBy,
		ExpiresAt:    payload.ExpiresAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, binding)
}

// UpdateModuleAccess replaces the per-module overrides on the user's binding.
func (h *UserHandler) UpdateModuleAccess(c *gin.Context) {
	var payload struct {
		Modules []struct {
			Module    string `json:"module" validate:"required"`
			HasAccess bool   `json:"has_access"`
		} `json:"modules" validate:"required,dive"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	entries := make([]models.ModuleAccessEntry, 0, len(payload.Modules))
	for _, m := range payload.Modules {
		entries = append(entries, models.ModuleAccessEntry{Module: m.Module, HasAccess: m.HasAccess})
	}

	if err := h.roles.UpdateModuleAccess(requestContext(c), c.Param("id"), entries); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// UpdateGrants replaces the individual permission grants on the user's binding.
func (h *UserHandler) UpdateGrants(c *gin.Context) {
	var payload struct {
		Grants []struct {
			PermissionID string `json:"permission_id" validate:"required"`
			Granted      bool   `json:"granted"`
		} `json:"grants" validate:"required,dive"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	grants := make([]models.PermissionGrant, 0, len(payload.Grants))
	for _, g := range payload.Grants {
		grants = append(grants, models.PermissionGrant{
			PermissionID: g.PermissionID,
			Granted:      g.Granted,
			Source:       models.GrantSourceIndividual,
		})
	}

	if err := h.roles.UpdateGrants(requestContext(c), c.Param("id"), grants); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}
