// Package db 提供 GORM 初始化、连接池配置、基于 context 的事务助手与 SQL 日志桥接
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/storefront/pkg/contextx"
	pkgLogger "github.com/wyfcoding/storefront/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config 数据库配置
type Config struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    int
	LogEnabled         bool
	SlowQueryThreshold int
}

// DB 数据库实例包装
type DB struct {
	*gorm.DB
	config Config
}

// Init 初始化数据库连接
func Init(cfg Config) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gdb, err := Open(dialector, cfg.LogEnabled, time.Duration(cfg.SlowQueryThreshold)*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pkgLogger.Info(context.Background(), "Database connected successfully", "driver", cfg.Driver)

	return &DB{DB: gdb, config: cfg}, nil
}

// Open 用给定方言打开 GORM 连接，统一开启错误翻译（唯一键冲突 -> gorm.ErrDuplicatedKey）
func Open(dialector gorm.Dialector, logEnabled bool, slowQueryThreshold time.Duration) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(logEnabled, slowQueryThreshold),
		TranslateError: true,
	})
}

// Close 关闭数据库连接
func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RunInTx 在事务中执行 fn，事务句柄通过 context 传递给仓储。
// context 中已有事务时使用嵌套事务（SAVEPOINT），失败只回滚到保存点。
func RunInTx(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	parent := Conn(ctx, db)
	return parent.Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

// Conn 返回 context 中的事务句柄，没有事务时返回绑定 ctx 的普通连接
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// GormLogger GORM 日志记录器实现
type GormLogger struct {
	enabled            bool
	slowQueryThreshold time.Duration
}

// NewGormLogger 创建 GORM 日志记录器
func NewGormLogger(enabled bool, slowQueryThreshold time.Duration) *GormLogger {
	return &GormLogger{
		enabled:            enabled,
		slowQueryThreshold: slowQueryThreshold,
	}
}

// LogMode 设置日志模式
func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return l
}

// Info 记录信息日志
func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.enabled {
		pkgLogger.Info(ctx, msg, "data", data)
	}
}

// Warn 记录警告日志
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	pkgLogger.Warn(ctx, msg, "data", data)
}

// Error 记录错误日志
func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	pkgLogger.Error(ctx, msg, "data", data)
}

// Trace 记录 SQL 执行日志
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if !l.enabled {
		return
	}

	elapsed := time.Since(begin)
	sqlStr, rows := fc()
	args := []any{
		"duration", elapsed,
		"rows", rows,
		"sql", sqlStr,
	}

	switch {
	case err != nil && err != gorm.ErrRecordNotFound:
		args = append(args, "error", err)
		pkgLogger.Error(ctx, "SQL execution failed", args...)
	case l.slowQueryThreshold > 0 && elapsed > l.slowQueryThreshold:
		pkgLogger.Warn(ctx, "Slow query detected", args...)
	default:
		pkgLogger.Debug(ctx, "SQL executed", args...)
	}
}
