// Package middleware 提供 Gin 与 gRPC 的通用中间件（日志、trace、panic recover、限流、鉴权）
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wyfcoding/storefront/pkg/contextx"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/response"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TraceHeader 透传 trace_id 的请求头
const TraceHeader = "X-Trace-ID"

// RequestIDHeader 回写 request_id 的响应头
const RequestIDHeader = "X-Request-ID"

// withIDs 生成 request/span ID，trace ID 优先沿用上游
func withIDs(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	ctx = contextx.WithTraceID(ctx, traceID)
	ctx = contextx.WithSpanID(ctx, uuid.NewString())
	return contextx.WithRequestID(ctx, uuid.NewString())
}

// GinLoggingMiddleware Gin 日志中间件
func GinLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := withIDs(c.Request.Context(), c.GetHeader(TraceHeader))
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, contextx.RequestID(ctx))

		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		logger.Debug(ctx, "HTTP request started",
			"method", method,
			"path", path,
			"client_ip", c.ClientIP(),
		)

		c.Next()

		logger.Info(ctx, "HTTP request completed",
			"method", method,
			"path", path,
			"status_code", c.Writer.Status(),
			"response_size", c.Writer.Size(),
			"duration", time.Since(start),
		)
	}
}

// GinRecoveryMiddleware Gin panic 恢复中间件
func GinRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(c.Request.Context(), "HTTP request panicked",
					"path", c.Request.URL.Path,
					"panic", err,
				)
				response.ErrorWithStatus(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
			}
		}()
		c.Next()
	}
}

// GinCORSMiddleware Gin CORS 中间件
func GinCORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID, X-Guest-Token")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-Guest-Token")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// GRPCLoggingInterceptor gRPC 日志拦截器
func GRPCLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = withIDs(ctx, traceIDFromMetadata(ctx))

		start := time.Now()
		resp, err := handler(ctx, req)
		duration := time.Since(start)

		if err != nil {
			st, _ := status.FromError(err)
			logger.Error(ctx, "gRPC request failed",
				"method", info.FullMethod,
				"error_code", st.Code().String(),
				"error_message", st.Message(),
				"duration", duration,
			)
		} else {
			logger.Debug(ctx, "gRPC request completed",
				"method", info.FullMethod,
				"duration", duration,
			)
		}
		return resp, err
	}
}

// GRPCRecoveryInterceptor gRPC panic 恢复拦截器
func GRPCRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "gRPC request panicked",
					"method", info.FullMethod,
					"panic", r,
				)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// traceIDFromMetadata 从 gRPC metadata 中提取 trace ID
func traceIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get("x-trace-id"); len(values) > 0 {
		return values[0]
	}
	return ""
}
