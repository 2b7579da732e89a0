// Package server 组装 Gin 与 gRPC 服务并负责启动和优雅关闭
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/storefront/pkg/config"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/metrics"
	"github.com/wyfcoding/storefront/pkg/middleware"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// shutdownTimeout HTTP 服务优雅关闭的最长等待时间
const shutdownTimeout = 15 * time.Second

// NewGinEngine 创建带通用中间件、/healthz 与 /metrics 的 Gin 引擎，m 可以为 nil
func NewGinEngine(cfg *config.Config, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
	)
	if m != nil {
		r.Use(m.GinMiddleware())
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(m.Handler()))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName, "version": cfg.Version})
	})
	return r
}

// NewGRPCServer 创建带日志、恢复拦截器与健康检查服务的 gRPC 服务
func NewGRPCServer(cfg *config.Config) (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			middleware.GRPCRecoveryInterceptor(),
			middleware.GRPCLoggingInterceptor(),
		),
	}
	if cfg.GRPC.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.GRPC.MaxConcurrentStreams)))
	}

	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(cfg.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(srv)
	return srv, hs
}

// Run 启动 HTTP 与 gRPC 服务，收到 SIGINT/SIGTERM 或任一服务退出时统一关闭
func Run(cfg *config.Config, handler http.Handler, grpcSrv *grpc.Server, hs *health.Server) error {
	g, ctx := errgroup.WithContext(context.Background())

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		logger.Info(ctx, "gRPC server starting", "addr", addr)
		return grpcSrv.Serve(lis)
	})

	g.Go(func() error {
		logger.Info(ctx, "HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		select {
		case <-quit:
			logger.Info(context.Background(), "shutting down servers...")
		case <-ctx.Done():
			logger.Info(context.Background(), "context cancelled, shutting down...")
		}

		hs.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		grpcSrv.GracefulStop()
		return err
	})

	return g.Wait()
}
