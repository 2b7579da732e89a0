// Package response 统一 HTTP JSON 响应格式
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/storefront/pkg/contextx"
)

// Body 统一响应体
type Body struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success 返回 200 与数据
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: "OK", Data: data, RequestID: contextx.RequestID(c.Request.Context())})
}

// Created 返回 201 与数据
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Code: "OK", Data: data, RequestID: contextx.RequestID(c.Request.Context())})
}

// NoContent 返回 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ErrorWithStatus 返回指定状态码与稳定错误码
func ErrorWithStatus(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Body{Code: code, Message: message, RequestID: contextx.RequestID(c.Request.Context())})
}
