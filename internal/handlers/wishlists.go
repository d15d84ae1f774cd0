package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/kestrel/internal/services"
	"github.com/kestrelhq/kestrel/pkg/response"
)

// WishlistHandler exposes the caller's wishlist.
type WishlistHandler struct {
	service *services.WishlistService
}

// NewWishlistHandler constructs a WishlistHandler.
func NewWishlistHandler(service *services.WishlistService) *WishlistHandler {
	return &WishlistHandler{service: service}
}

// Get returns the caller's wishlist, creating it on first access.
func (h *WishlistHandler) Get(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	wishlist, err := h.service.GetOrCreate(requestContext(c), viewer.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, wishlist)
}

// AddProduct adds a product to the wishlist. Re-adding is a no-op.
func (h *WishlistHandler) AddProduct(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		ProductID string `json:"product_id" validate:"required"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	wishlist, err := h.service.AddProduct(requestContext(c), viewer.UserID, payload.ProductID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, wishlist)
}

// RemoveProduct drops a product from the wishlist.
func (h *WishlistHandler) RemoveProduct(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	wishlist, err := h.service.RemoveProduct(requestContext(c), viewer.UserID, c.Param("productId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, wishlist)
}
