// Package dbtest 为仓储与服务测试提供内存 SQLite 数据库
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/wyfcoding/storefront/pkg/db"
	"gorm.io/gorm"
)

// Open 打开独立的内存数据库并迁移 models。
// 只保留一个连接：内存库随连接存在，事务内外的语句也因此串行执行。
func Open(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(sqlite.Open("file::memory:"), false, 0)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		if err := gdb.AutoMigrate(models...); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return gdb
}
