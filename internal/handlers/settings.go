package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/kestrel/internal/services"
	"github.com/kestrelhq/kestrel/pkg/response"
)

// SettingsHandler exposes the store-wide key/value settings.
type SettingsHandler struct {
	service *services.SettingsService
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(service *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// GetAll returns every setting as a key/value map.
func (h *SettingsHandler) GetAll(c *gin.Context) {
	settings, err := h.service.GetAll(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, settings)
}

// Get returns one setting value.
func (h *SettingsHandler) Get(c *gin.Context) {
	key := c.Param("key")
	value, err := h.service.Get(requestContext(c), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"key": key, "value": value})
}

// Put creates or updates one setting.
func (h *SettingsHandler) Put(c *gin.Context) {
	var payload struct {
		Value string `json:"value" validate:"required"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	key := c.Param("key")
	if err := h.service.Put(requestContext(c), key, payload.Value); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"key": key, "value": payload.Value})
}
