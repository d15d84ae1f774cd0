package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/kestrelhq/kestrel/internal/inventory"
	"github.com/kestrelhq/kestrel/internal/services"
	"github.com/kestrelhq/kestrel/pkg/response"
)

// ProductHandler exposes catalog and stock endpoints.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

type variantPayload struct {
	SKU   string          `json:"sku" validate:"required"`
	Color string          `json:"color"`
	Size  string          `json:"size"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// List returns products within the caller's visibility scope.
func (h *ProductHandler) List(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 25)

	products, total, err := h.service.List(requestContext(c), viewer, services.ListProductsInput{
		Page:       page,
		PerPage:    perPage,
		CategoryID: c.Query("category_id"),
		ActiveOnly: c.Query("active") == "true",
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, products, paginationMeta(page, perPage, total))
}

// Get returns one product with variants.
func (h *ProductHandler) Get(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	product, err := h.service.Get(requestContext(c), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, product)
}

// Create registers a product owned by the caller.
func (h *ProductHandler) Create(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		Name        string           `json:"name" validate:"required"`
		Description string           `json:"description"`
		CategoryID  *string          `json:"category_id"`
		Variants    []variantPayload `json:"variants" validate:"required,min=1,dive"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	input := services.CreateProductInput{
		Name:        payload.Name,
		Description: payload.Description,
		CategoryID:  payload.CategoryID,
		CreatedByID: viewer.UserID,
	}
	for _, v := range payload.Variants {
		input.Variants = append(input.Variants, services.VariantInput{
			SKU:   v.SKU,
			Color: v.Color,
			Size:  v.Size,
			Price: v.Price,
			Stock: v.Stock,
		})
	}

	product, err := h.service.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, product)
}

// Update applies metadata changes to a product.
func (h *ProductHandler) Update(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		CategoryID  *string `json:"category_id"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	product, err := h.service.Update(requestContext(c), viewer, c.Param("id"), services.UpdateProductInput{
		Name:        payload.Name,
		Description: payload.Description,
		CategoryID:  payload.CategoryID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, product)
}

// SetActive is the manual listing toggle.
func (h *ProductHandler) SetActive(c *gin.Context) {
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

	product, err := h.service.SetActive(requestContext(c), viewer, c.Param("id"), *payload.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, product)
}

// MutateStock applies a set/increase/decrease operation to one variant.
func (h *ProductHandler) MutateStock(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}

	var payload struct {
		Op     string `json:"op" validate:"required,oneof=set increase decrease"`
		Amount int    `json:"amount"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	change, err := h.service.MutateStock(
		requestContext(c),
		viewer,
		c.Param("id"),
		strings.TrimSpace(c.Param("sku")),
		inventory.Op(payload.Op),
		payload.Amount,
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, change)
}

// Delete removes a product not referenced by orders.
func (h *ProductHandler) Delete(c *gin.Context) {
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
