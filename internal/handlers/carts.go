package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/kestrel/internal/services"
	"github.com/kestrelhq/kestrel/pkg/response"
)

// CartHandler exposes the caller's shopping cart.
type CartHandler struct {
	service *services.CartService
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{service: service}
}

// Get returns the caller's cart, creating it on first access.
func (h *CartHandler) Get(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	cart, err := h.service.GetOrCreate(requestContext(c), viewer.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cart)
}

// AddItem adds a variant to the cart or bumps its quantity.
func (h *CartHandler) AddItem(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		ProductID  string `json:"product_id" validate:"required"`
		VariantSKU string `json:"variant_sku" validate:"required"`
		Quantity   int    `json:"quantity" validate:"required,min=1"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	cart, err := h.service.AddItem(requestContext(c), viewer.UserID, payload.ProductID, payload.VariantSKU, payload.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cart)
}

// UpdateItem sets a line's quantity. Zero removes the line.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		Quantity *int `json:"quantity" validate:"required,min=0"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	cart, err := h.service.UpdateItemQuantity(requestContext(c), viewer.UserID, c.Param("sku"), *payload.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cart)
}

// RemoveItem drops one line from the cart.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(requestContext(c), viewer.UserID, c.Param("sku"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cart)
}

// Clear empties the cart.
func (h *CartHandler) Clear(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	if err := h.service.Clear(requestContext(c), viewer.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cleared": true})
}

// Merge folds a guest cart into the caller's cart. Lines referencing variants
// that no longer exist are skipped.
func (h *CartHandler) Merge(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		Items []struct {
			ProductID  string `json:"product_id" validate:"required"`
			VariantSKU string `json:"variant_sku" validate:"required"`
			Quantity   int    `json:"quantity" validate:"required,min=1"`
		} `json:"items" validate:"required,dive"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	items := make([]services.MergeCartItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, services.MergeCartItem{
			ProductID:  item.ProductID,
			VariantSKU: item.VariantSKU,
			Quantity:   item.Quantity,
		})
	}

	cart, err := h.service.Merge(requestContext(c), viewer.UserID, items)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cart)
}
