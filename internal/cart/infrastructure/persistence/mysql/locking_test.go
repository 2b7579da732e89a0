package mysql

import (
	"context"
	"strings"
	"testing"

	"github.com/wyfcoding/storefront/internal/cart/domain"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// dryRunMySQL 只生成 MySQL 语句不执行，记录每条查询
func dryRunMySQL(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()
	gdb, err := gorm.Open(mysqldriver.New(mysqldriver.Config{
		DSN:                       "storefront:storefront@tcp(127.0.0.1:3306)/storefront?parseTime=True",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open dry-run mysql: %v", err)
	}

	var statements []string
	err = gdb.Callback().Query().After("gorm:query").Register("test:record_sql", func(tx *gorm.DB) {
		statements = append(statements, tx.Dialector.Explain(tx.Statement.SQL.String(), tx.Statement.Vars...))
	})
	if err != nil {
		t.Fatal(err)
	}
	return gdb, &statements
}

func TestGetByOwnerForUpdateLocksCartAndItems(t *testing.T) {
	tests := []struct {
		owner domain.Owner
		where string
	}{
		{domain.UserOwner(42), "user_id = 42"},
		{domain.GuestOwner("tok-1"), "guest_token = 'tok-1'"},
	}
	for _, tt := range tests {
		t.Run(tt.owner.Kind().String(), func(t *testing.T) {
			gdb, statements := dryRunMySQL(t)
			if _, err := NewCartRepository(gdb).GetByOwnerForUpdate(context.Background(), tt.owner); err != nil {
				t.Fatal(err)
			}

			got := *statements
			if len(got) != 2 {
				t.Fatalf("statements = %q, want cart select then item select", got)
			}
			cartSQL, itemSQL := got[0], got[1]
			if !strings.Contains(cartSQL, "FROM `carts`") || !strings.Contains(cartSQL, tt.where) {
				t.Errorf("cart select = %s", cartSQL)
			}
			if !strings.HasSuffix(cartSQL, "FOR UPDATE") {
				t.Errorf("cart select is not locked: %s", cartSQL)
			}
			if !strings.Contains(itemSQL, "FROM `cart_items`") || !strings.HasSuffix(itemSQL, "FOR UPDATE") {
				t.Errorf("item select is not locked: %s", itemSQL)
			}
		})
	}
}

func TestGetByOwnerDoesNotLock(t *testing.T) {
	gdb, statements := dryRunMySQL(t)
	if _, err := NewCartRepository(gdb).GetByOwner(context.Background(), domain.UserOwner(1)); err != nil {
		t.Fatal(err)
	}
	for _, sql := range *statements {
		if strings.Contains(sql, "FOR UPDATE") {
			t.Errorf("plain read took a row lock: %s", sql)
		}
	}
}
