package application

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/wyfcoding/storefront/internal/cart/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func TestMergeGuestCartSumsAndDeletesGuest(t *testing.T) {
	env := newTestEnv(t)
	env.catalogFixture(t)
	ctx := context.Background()
	user := domain.UserOwner(1)
	guest := domain.GuestOwner("guest-p4")

	mustCart(t)(env.svc.AddItem(ctx, user, ItemSelector{VariantID: 1}, 2))
	mustCart(t)(env.svc.AddItem(ctx, guest, ItemSelector{VariantID: 1}, 3))
	mustCart(t)(env.svc.AddItem(ctx, guest, ItemSelector{VariantID: 2}, 1))

	cart := mustCart(t)(env.svc.MergeGuestCart(ctx, 1, "guest-p4"))

	if len(cart.Items) != 2 {
		t.Fatalf("lines = %d, want 2: %+v", len(cart.Items), cart.Items)
	}
	q := quantities(cart)
	if q[1] != 5 || q[2] != 1 {
		t.Errorf("quantities = %v, want {1:5 2:1}", q)
	}
	if n := env.cartCount(t, guest); n != 0 {
		t.Errorf("guest cart must be deleted, found %d", n)
	}
	var orphans int64
	env.db.Model(&domain.CartItem{}).Where("cart_id <> ?", cart.ID).Count(&orphans)
	if orphans != 0 {
		t.Errorf("guest lines must be deleted with the guest cart, found %d", orphans)
	}
	if env.events.count(domain.TopicCartGuestMerged) != 1 {
		t.Errorf("events = %v", env.events.topics())
	}
}

func TestMergeGuestCartIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.catalogFixture(t)
	ctx := context.Background()

	mustCart(t)(env.svc.AddItem(ctx, domain.UserOwner(1), ItemSelector{VariantID: 1}, 2))
	mustCart(t)(env.svc.AddItem(ctx, domain.GuestOwner("twice"), ItemSelector{VariantID: 1}, 3))
	mustCart(t)(env.svc.AddItem(ctx, domain.GuestOwner("twice"), ItemSelector{VariantID: 2}, 1))

	first := mustCart(t)(env.svc.MergeGuestCart(ctx, 1, "twice"))
	second := mustCart(t)(env.svc.MergeGuestCart(ctx, 1, "twice"))

	if first.ID != second.ID {
		t.Fatalf("cart changed between merges: %d vs %d", first.ID, second.ID)
	}
	q1, q2 := quantities(first), quantities(second)
	if len(q1) != len(q2) {
		t.Fatalf("line count changed: %v vs %v", q1, q2)
	}
	for v, n := range q1 {
		if q2[v] != n {
			t.Errorf("variant %d: %d after first merge, %d after second", v, n, q2[v])
		}
	}
	if env.events.count(domain.TopicCartGuestMerged) != 1 {
		t.Error("the second merge must not report a merge")
	}
}

func TestMergeEmptyGuestCart(t *testing.T) {
	t.Run("existing user cart is unchanged", func(t *testing.T) {
		env := newTestEnv(t)
		env.catalogFixture(t)
		ctx := context.Background()

		before := mustCart(t)(env.svc.AddItem(ctx, domain.UserOwner(1), ItemSelector{VariantID: 2}, 4))
		mustCart(t)(env.svc.GetOrCreateCart(ctx, domain.GuestOwner("empty")))

		after := mustCart(t)(env.svc.MergeGuestCart(ctx, 1, "empty"))

		if after.ID != before.ID || len(after.Items) != 1 || after.Items[0].Quantity != 4 {
			t.Errorf("user cart changed: %+v", after.Items)
		}
		if n := env.cartCount(t, domain.GuestOwner("empty")); n != 0 {
			t.Errorf("empty guest cart must be removed, found %d", n)
		}
		if n := env.events.count(domain.TopicCartGuestMerged); n != 0 {
			t.Errorf("merging an empty guest cart published %d cart.guest.merged events", n)
		}
	})

	t.Run("missing user cart is created", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		mustCart(t)(env.svc.GetOrCreateCart(ctx, domain.GuestOwner("empty")))

		cart := mustCart(t)(env.svc.MergeGuestCart(ctx, 9, "empty"))

		if cart.UserID == nil || *cart.UserID != 9 || len(cart.Items) != 0 {
			t.Errorf("expected an empty cart for user 9, got %+v", cart)
		}
		if n := env.cartCount(t, domain.GuestOwner("empty")); n != 0 {
			t.Errorf("guest cart must be removed, found %d", n)
		}
	})

	t.Run("unknown guest token", func(t *testing.T) {
		env := newTestEnv(t)

		cart := mustCart(t)(env.svc.MergeGuestCart(context.Background(), 4, "never-issued"))

		if cart.UserID == nil || *cart.UserID != 4 {
			t.Errorf("expected user 4's cart, got %+v", cart)
		}
		if n := env.cartCount(t, domain.UserOwner(4)); n != 1 {
			t.Errorf("carts for user = %d, want 1", n)
		}
	})
}

func TestMergeIntoMissingUserCart(t *testing.T) {
	env := newTestEnv(t)
	env.catalogFixture(t)
	ctx := context.Background()

	mustCart(t)(env.svc.AddItem(ctx, domain.GuestOwner("fresh"), ItemSelector{VariantID: 55}, 2))
	cart := mustCart(t)(env.svc.MergeGuestCart(ctx, 3, "fresh"))

	if got := quantities(cart); len(got) != 1 || got[55] != 2 {
		t.Errorf("quantities = %v, want {55:2}", got)
	}
	if cart.Items[0].Variant == nil {
		t.Error("merged line must carry its variant")
	}
}

func TestMergeSkipsLinesWithDeletedVariants(t *testing.T) {
	env := newTestEnv(t)
	env.catalogFixture(t)
	ctx := context.Background()

	guestCart := mustCart(t)(env.svc.AddItem(ctx, domain.GuestOwner("stale"), ItemSelector{VariantID: 1}, 1))
	stale := &domain.CartItem{CartID: guestCart.ID, VariantID: 4040, ProductID: 1, Quantity: 2}
	if err := env.db.Create(stale).Error; err != nil {
		t.Fatal(err)
	}

	cart := mustCart(t)(env.svc.MergeGuestCart(ctx, 1, "stale"))

	if got := quantities(cart); len(got) != 1 || got[1] != 1 {
		t.Errorf("quantities = %v, want {1:1}", got)
	}
	if n := env.cartCount(t, domain.GuestOwner("stale")); n != 0 {
		t.Errorf("guest cart must be deleted even when lines are skipped, found %d", n)
	}
}

func TestMergeRollsBackWhenUserCartCannotBeCreated(t *testing.T) {
	base := newTestEnv(t)
	base.catalogFixture(t)
	ctx := context.Background()
	mustCart(t)(base.svc.AddItem(ctx, domain.GuestOwner("keep"), ItemSelector{VariantID: 1}, 2))

	env := newTestEnvWithRepo(t, base.db, &failingCreateRepo{CartRepository: base.repo})
	_, err := env.svc.MergeGuestCart(ctx, 1, "keep")
	wantErr(t, err, domain.ErrCartCreationFailure)

	guest := mustCart(t)(base.svc.GetOrCreateCart(ctx, domain.GuestOwner("keep")))
	if got := quantities(guest); got[1] != 2 {
		t.Errorf("guest cart must be untouched after a failed merge, got %v", got)
	}
}

func TestMergeRejectsInvalidOwners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.MergeGuestCart(ctx, 0, "token")
	wantErr(t, err, domain.ErrInvalidRequest)
	_, err = env.svc.MergeGuestCart(ctx, 1, "")
	wantErr(t, err, domain.ErrInvalidRequest)
}

type recordedQuery struct {
	table  string
	sql    string
	locked bool
}

// recordQueries 记录查询及其行锁子句。SQLite 不输出 FOR UPDATE，因此直接检查语句上的 Locking 子句
func recordQueries(t *testing.T, gdb *gorm.DB) func() []recordedQuery {
	t.Helper()
	var (
		mu      sync.Mutex
		queries []recordedQuery
	)
	err := gdb.Callback().Query().After("gorm:query").Register("test:record_locks", func(tx *gorm.DB) {
		locked := false
		if c, ok := tx.Statement.Clauses["FOR"]; ok {
			if l, ok := c.Expression.(clause.Locking); ok && l.Strength == clause.LockingStrengthUpdate {
				locked = true
			}
		}
		mu.Lock()
		defer mu.Unlock()
		queries = append(queries, recordedQuery{
			table:  tx.Statement.Table,
			sql:    tx.Dialector.Explain(tx.Statement.SQL.String(), tx.Statement.Vars...),
			locked: locked,
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	return func() []recordedQuery {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedQuery(nil), queries...)
	}
}

func TestMergeLocksUserCartBeforeGuestCart(t *testing.T) {
	env := newTestEnv(t)
	env.catalogFixture(t)
	ctx := context.Background()
	mustCart(t)(env.svc.AddItem(ctx, domain.UserOwner(1), ItemSelector{VariantID: 1}, 1))
	mustCart(t)(env.svc.AddItem(ctx, domain.GuestOwner("lock-order"), ItemSelector{VariantID: 2}, 1))

	recorded := recordQueries(t, env.db)
	mustCart(t)(env.svc.MergeGuestCart(ctx, 1, "lock-order"))

	var cartReads []recordedQuery
	for _, q := range recorded() {
		if q.table == "carts" || q.table == "cart_items" {
			cartReads = append(cartReads, q)
		}
	}
	if len(cartReads) < 4 {
		t.Fatalf("cart reads = %+v", cartReads)
	}

	want := []struct {
		table    string
		contains string
	}{
		{"carts", "user_id"},
		{"cart_items", "cart_id"},
		{"carts", "guest_token"},
		{"cart_items", "cart_id"},
	}
	for i, w := range want {
		got := cartReads[i]
		if got.table != w.table || !strings.Contains(got.sql, w.contains) {
			t.Errorf("read %d = %s, want %s filtered by %s", i, got.sql, w.table, w.contains)
		}
		if !got.locked {
			t.Errorf("read %d is not FOR UPDATE: %s", i, got.sql)
		}
	}
}
