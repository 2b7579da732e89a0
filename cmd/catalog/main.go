package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/wyfcoding/storefront/internal/catalog/application"
	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/internal/catalog/infrastructure/messaging"
	"github.com/wyfcoding/storefront/internal/catalog/infrastructure/persistence/mysql"
	cataloghttp "github.com/wyfcoding/storefront/internal/catalog/interfaces/http"
	"github.com/wyfcoding/storefront/pkg/config"
	"github.com/wyfcoding/storefront/pkg/db"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/metrics"
	"github.com/wyfcoding/storefront/pkg/mq"
	"github.com/wyfcoding/storefront/pkg/server"
)

var configPath = flag.String("config", "configs/catalog/config.toml", "config file path")

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

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(&domain.Product{}, &domain.Variant{}); err != nil {
			logger.Fatal(ctx, "failed to migrate database", "error", err)
		}
	}

	// 5. 初始化消息投递
	sender, err := mq.NewSender(cfg.Messaging)
	if err != nil {
		logger.Fatal(ctx, "failed to init messaging", "error", err)
	}
	defer sender.Close()

	// 6. 初始化仓储与应用服务
	appService := application.NewCatalogApplicationService(
		mysql.NewProductRepository(database.DB),
		mysql.NewVariantRepository(database.DB),
		messaging.NewEventPublisher(sender, m),
	)

	// 7. 初始化接口层
	r := server.NewGinEngine(cfg, m)
	cataloghttp.NewCatalogHandler(appService).RegisterRoutes(r)
	grpcSrv, healthSrv := server.NewGRPCServer(cfg)

	// 8. 启动服务
	if err := server.Run(cfg, r, grpcSrv, healthSrv); err != nil {
		logger.Error(ctx, "server exited with error", "error", err)
		os.Exit(1)
	}
}
