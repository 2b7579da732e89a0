package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/internal/catalog/application"
	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/response"
)

// CatalogHandler 商品目录 HTTP 处理器
type CatalogHandler struct {
	app *application.CatalogApplicationService
}

// NewCatalogHandler 创建 HTTP 处理器实例
func NewCatalogHandler(app *application.CatalogApplicationService) *CatalogHandler {
	return &CatalogHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *CatalogHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/products")
	{
		api.POST("", h.CreateProduct)
		api.GET("", h.ListProducts)
		api.GET("/:id", h.GetProduct)
		api.PUT("/:id", h.UpdateProduct)
		api.GET("/:id/variants", h.ListVariants)
		api.POST("/:id/variants", h.AddVariant)
	}
}

type productRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
}

type variantRequest struct {
	Color string          `json:"color" binding:"required"`
	Size  string          `json:"size" binding:"required"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// CreateProduct 创建商品
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	product, err := h.app.CreateProduct(c.Request.Context(), application.CreateProductCommand{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	})
	if err != nil {
		h.fail(c, "Failed to create product", err)
		return
	}
	response.Created(c, product)
}

// UpdateProduct 更新商品
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	product, err := h.app.UpdateProduct(c.Request.Context(), application.UpdateProductCommand{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	})
	if err != nil {
		h.fail(c, "Failed to update product", err)
		return
	}
	response.Success(c, product)
}

// GetProduct 获取商品
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := h.app.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get product", err)
		return
	}
	if product == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", domain.ErrProductNotFound.Error())
		return
	}
	response.Success(c, product)
}

// ListProducts 分页列出商品
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid page")
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid page_size")
		return
	}

	products, pagination, err := h.app.ListProducts(c.Request.Context(), c.Query("category"), page, size)
	if err != nil {
		h.fail(c, "Failed to list products", err)
		return
	}
	response.Success(c, gin.H{"products": products, "pagination": pagination})
}

// ListVariants 列出商品规格
func (h *CatalogHandler) ListVariants(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	variants, err := h.app.ListVariants(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to list variants", err)
		return
	}
	response.Success(c, variants)
}

// AddVariant 新增规格
func (h *CatalogHandler) AddVariant(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req variantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	variant, err := h.app.AddVariant(c.Request.Context(), application.AddVariantCommand{
		ProductID: id,
		Color:     req.Color,
		Size:      req.Size,
		Price:     req.Price,
		Stock:     req.Stock,
	})
	if err != nil {
		h.fail(c, "Failed to add variant", err)
		return
	}
	response.Created(c, variant)
}

func (h *CatalogHandler) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidProduct), errors.Is(err, domain.ErrInvalidVariant):
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrVariantNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "VARIANT_NOT_FOUND", err.Error())
	default:
		logger.Error(c.Request.Context(), msg, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid id")
		return 0, false
	}
	return uint(id), true
}
