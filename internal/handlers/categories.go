package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/kestrel/internal/services"
	"github.com/kestrelhq/kestrel/pkg/response"
)

// CategoryHandler exposes category CRUD endpoints.
type CategoryHandler struct {
	service *services.CategoryService
}

// NewCategoryHandler constructs a CategoryHandler.
func NewCategoryHandler(service *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// List returns all visible categories.
func (h *CategoryHandler) List(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	categories, err := h.service.List(requestContext(c), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, categories)
}

// Get returns one category.
func (h *CategoryHandler) Get(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	category, err := h.service.Get(requestContext(c), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, category)
}

// Create registers a category.
func (h *CategoryHandler) Create(c *gin.Context) {
	var payload struct {
		Name     string  `json:"name" validate:"required"`
		ParentID *string `json:"parent_id"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	category, err := h.service.Create(requestContext(c), services.CreateCategoryInput{
		Name:     payload.Name,
		ParentID: payload.ParentID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, category)
}

// Update applies changes to a category.
func (h *CategoryHandler) Update(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		Name     *string `json:"name"`
		ParentID *string `json:"parent_id"`
		IsActive *bool   `json:"is_active"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	category, err := h.service.Update(requestContext(c), viewer, c.Param("id"), services.UpdateCategoryInput{
		Name:     payload.Name,
		ParentID: payload.ParentID,
		IsActive: payload.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, category)
}

// Delete removes an empty category.
func (h *CategoryHandler) Delete(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	if err := h.service.Delete(requestContext(c), viewer, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
