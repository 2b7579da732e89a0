package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/storefront/internal/cart/application"
	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/middleware"
	"github.com/wyfcoding/storefront/pkg/ratelimit"
	"github.com/wyfcoding/storefront/pkg/response"
)

// GuestTokenHeader 游客请求携带令牌的请求头
const GuestTokenHeader = "X-Guest-Token"

// CartHandler 购物车 HTTP 处理器
type CartHandler struct {
	app        *application.CartApplicationService
	verifier   *middleware.TokenVerifier
	limiter    ratelimit.RateLimiter
	guestLimit int
}

// NewCartHandler 创建 HTTP 处理器实例。limiter 为 nil 或 guestLimit <= 0 时不限流
func NewCartHandler(
	app *application.CartApplicationService,
	verifier *middleware.TokenVerifier,
	limiter ratelimit.RateLimiter,
	guestLimit int,
) *CartHandler {
	return &CartHandler{app: app, verifier: verifier, limiter: limiter, guestLimit: guestLimit}
}

// RegisterRoutes 注册路由
func (h *CartHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/cart")
	api.Use(middleware.GinOptionalAuth(h.verifier, func(c *gin.Context) {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
	}))
	{
		api.POST("/guest",
			middleware.RateLimitMiddleware(h.limiter, ratelimit.GuestCartPolicy(h.guestLimit)),
			h.CreateGuestCart)
		api.GET("", h.GetCart)
		api.GET("/summary", h.GetSummary)
		api.POST("/items", h.AddItem)
		api.PATCH("/items", h.UpdateItem)
		api.DELETE("/items/:id", h.RemoveItem)
		api.POST("/items/decrement", h.DecrementItem)
		api.DELETE("/items", h.Clear)
		api.POST("/merge-guest", h.MergeGuest)
	}
}

type addItemRequest struct {
	VariantID uint   `json:"variant_id"`
	ProductID uint   `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  *int   `json:"quantity"`
}

type updateItemRequest struct {
	ItemID    uint   `json:"item_id"`
	VariantID uint   `json:"variant_id"`
	ProductID uint   `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  *int   `json:"quantity"`
}

type decrementRequest struct {
	VariantID uint `json:"variant_id" binding:"required"`
	Quantity  *int `json:"quantity"`
}

type mergeRequest struct {
	GuestToken string `json:"guest_token"`
}

// CreateGuestCart 生成游客令牌与空购物车
func (h *CartHandler) CreateGuestCart(c *gin.Context) {
	token, cart, err := h.app.CreateGuestCart(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header(GuestTokenHeader, token)
	response.Created(c, gin.H{"guest_token": token, "cart": cart})
}

// GetCart 获取当前归属者的购物车
func (h *CartHandler) GetCart(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}
	cart, err := h.app.GetOrCreateCart(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, cart)
}

// GetSummary 获取购物车汇总
func (h *CartHandler) GetSummary(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}
	summary, err := h.app.GetCartSummary(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, summary)
}

// AddItem 添加商品，未指定数量时为 1
func (h *CartHandler) AddItem(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.app.AddItem(c.Request.Context(), owner, application.ItemSelector{
		VariantID: req.VariantID,
		ProductID: req.ProductID,
		Color:     req.Color,
		Size:      req.Size,
	}, quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, cart)
}

// UpdateItem 设置行项目数量
func (h *CartHandler) UpdateItem(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Quantity == nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", "quantity is required")
		return
	}

	cart, err := h.app.UpdateItem(c.Request.Context(), owner, req.ItemID, application.ItemSelector{
		VariantID: req.VariantID,
		ProductID: req.ProductID,
		Color:     req.Color,
		Size:      req.Size,
	}, *req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, cart)
}

// RemoveItem 删除行项目
func (h *CartHandler) RemoveItem(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || itemID == 0 {
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid item id")
		return
	}

	cart, err := h.app.RemoveItem(c.Request.Context(), owner, uint(itemID))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, cart)
}

// DecrementItem 扣减用户购物车中某规格的数量，仅限登录用户
func (h *CartHandler) DecrementItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req decrementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.app.RemoveVariantQuantity(c.Request.Context(), userID, req.VariantID, quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, cart)
}

// Clear 清空购物车
func (h *CartHandler) Clear(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}
	if err := h.app.Clear(c.Request.Context(), owner); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

// MergeGuest 合并游客购物车，令牌取请求体，缺省时取 X-Guest-Token 请求头
func (h *CartHandler) MergeGuest(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req mergeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
	}
	token := strings.TrimSpace(req.GuestToken)
	if token == "" {
		token = strings.TrimSpace(c.GetHeader(GuestTokenHeader))
	}
	if token == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", "guest_token is required")
		return
	}

	cart, err := h.app.MergeGuestCart(c.Request.Context(), userID, token)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, cart)
}

// resolveOwner 已认证用户优先，其次是游客令牌，都没有则 401
func resolveOwner(c *gin.Context) (domain.Owner, bool) {
	if userID, ok := middleware.AuthenticatedUserID(c); ok {
		return domain.UserOwner(userID), true
	}
	if token := strings.TrimSpace(c.GetHeader(GuestTokenHeader)); token != "" {
		owner := domain.GuestOwner(token)
		if err := owner.Validate(); err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return domain.Owner{}, false
		}
		return owner, true
	}
	response.ErrorWithStatus(c, http.StatusUnauthorized, "UNAUTHORIZED", "bearer token or guest token required")
	return domain.Owner{}, false
}

func requireUser(c *gin.Context) (uint64, bool) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return 0, false
	}
	return userID, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_QUANTITY", err.Error())
	case errors.Is(err, domain.ErrInvalidRequest):
		response.ErrorWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, domain.ErrVariantNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "VARIANT_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "ITEM_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrCartCreationFailure):
		logger.Error(c.Request.Context(), "cart creation failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "CART_CREATION_FAILURE", "could not create cart")
	default:
		logger.Error(c.Request.Context(), "cart request failed", "path", c.FullPath(), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}
