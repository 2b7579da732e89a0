package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wyfcoding/storefront/internal/cart/application"
	"github.com/wyfcoding/storefront/internal/cart/domain"
	cartcache "github.com/wyfcoding/storefront/internal/cart/infrastructure/cache"
	"github.com/wyfcoding/storefront/internal/cart/infrastructure/catalog"
	"github.com/wyfcoding/storefront/internal/cart/infrastructure/messaging"
	"github.com/wyfcoding/storefront/internal/cart/infrastructure/persistence/mysql"
	carthttp "github.com/wyfcoding/storefront/internal/cart/interfaces/http"
	catalogapp "github.com/wyfcoding/storefront/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/storefront/internal/catalog/domain"
	catalogmessaging "github.com/wyfcoding/storefront/internal/catalog/infrastructure/messaging"
	catalogmysql "github.com/wyfcoding/storefront/internal/catalog/infrastructure/persistence/mysql"
	"github.com/wyfcoding/storefront/pkg/cache"
	"github.com/wyfcoding/storefront/pkg/config"
	"github.com/wyfcoding/storefront/pkg/db"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/metrics"
	"github.com/wyfcoding/storefront/pkg/middleware"
	"github.com/wyfcoding/storefront/pkg/mq"
	"github.com/wyfcoding/storefront/pkg/ratelimit"
	"github.com/wyfcoding/storefront/pkg/server"
)

var configPath = flag.String("config", "configs/cart/config.toml", "config file path")

func main() {
	flag.Parse()
	ctx := context.Background()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Service:    cfg.ServiceName,
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Fatal(ctx, "auth.jwt_secret is required")
	}

	// 3. 初始化指标
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.ServiceName)
	}

	// 4. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to connect database", "error", err)
	}
	defer database.Close()

	// 商品目录与购物车共用同一个库，默认规格的生成才能和加购处于同一事务
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(
			&catalogdomain.Product{},
			&catalogdomain.Variant{},
			&domain.Cart{},
			&domain.CartItem{},
		); err != nil {
			logger.Fatal(ctx, "failed to migrate database", "error", err)
		}
	}

	// 5. 初始化 Redis：购物车缓存与游客令牌限流，不可用时降级
	var (
		carts   domain.CartCache
		limiter ratelimit.RateLimiter
	)
	if cfg.Redis.Enabled {
		redisCache, err := cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Error(ctx, "failed to init redis, running without cache and rate limit", "error", err)
		} else {
			defer redisCache.Close()
			if cfg.Cart.CacheTTLSeconds > 0 {
				carts = cartcache.NewCartCache(redisCache, time.Duration(cfg.Cart.CacheTTLSeconds)*time.Second)
			}
			limiter = ratelimit.NewRedisRateLimiter(redisCache.GetClient())
		}
	}

	// 6. 初始化消息投递
	sender, err := mq.NewSender(cfg.Messaging)
	if err != nil {
		logger.Fatal(ctx, "failed to init messaging", "error", err)
	}
	defer sender.Close()

	// 7. 初始化仓储与应用服务
	catalogService := catalogapp.NewCatalogApplicationService(
		catalogmysql.NewProductRepository(database.DB),
		catalogmysql.NewVariantRepository(database.DB),
		catalogmessaging.NewEventPublisher(sender, m),
	)
	cartService := application.NewCartApplicationService(
		mysql.NewCartRepository(database.DB),
		catalog.NewVariantCatalog(catalogService),
		carts,
		messaging.NewEventPublisher(sender, m),
		m,
	)

	// 8. 初始化接口层
	r := server.NewGinEngine(cfg, m)
	verifier := middleware.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	carthttp.NewCartHandler(cartService, verifier, limiter, cfg.Cart.GuestRateLimit).RegisterRoutes(r)
	grpcSrv, healthSrv := server.NewGRPCServer(cfg)

	// 9. 启动服务
	if err := server.Run(cfg, r, grpcSrv, healthSrv); err != nil {
		logger.Error(ctx, "server exited with error", "error", err)
		os.Exit(1)
	}
}
