package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/kestrelhq/kestrel/internal/services"
	"github.com/kestrelhq/kestrel/pkg/response"
)

// OrderHandler exposes order lifecycle endpoints.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// List returns orders within the caller's visibility scope.
func (h *OrderHandler) List(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 25)

	orders, total, err := h.service.List(requestContext(c), viewer, services.ListOrdersInput{
		Page:    page,
		PerPage: perPage,
		Status:  c.Query("status"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, orders, paginationMeta(page, perPage, total))
}

// Get returns one order with items.
func (h *OrderHandler) Get(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	order, err := h.service.Get(requestContext(c), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}

// Checkout creates an order from the caller's items.
func (h *OrderHandler) Checkout(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		ShippingAddress string          `json:"shipping_address"`
		ShippingFee     decimal.Decimal `json:"shipping_fee"`
		Items           []struct {
			ProductID  string `json:"product_id" validate:"required"`
			VariantSKU string `json:"variant_sku" validate:"required"`
			Quantity   int    `json:"quantity" validate:"required,min=1"`
		} `json:"items" validate:"required,min=1,dive"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	input := services.CheckoutInput{
		UserID:          viewer.UserID,
		ShippingAddress: payload.ShippingAddress,
		ShippingFee:     payload.ShippingFee,
	}
	for _, item := range payload.Items {
		input.Items = append(input.Items, services.CheckoutItem{
			ProductID:  item.ProductID,
			VariantSKU: item.VariantSKU,
			Quantity:   item.Quantity,
		})
	}

	order, err := h.service.Checkout(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, order)
}

// UpdateStatus moves an order along the lifecycle.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
		Note   string `json:"note"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	order, err := h.service.UpdateStatus(requestContext(c), viewer, c.Param("id"), payload.Status, payload.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}

// Cancel cancels an order and restocks its items.
func (h *OrderHandler) Cancel(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		Note string `json:"note"`
	}
	// The body is optional for cancellation.
	_ = c.ShouldBindJSON(&payload)

	order, err := h.service.Cancel(requestContext(c), viewer, c.Param("id"), payload.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}
