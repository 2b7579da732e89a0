package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/db/dbtest"
)

func newRepo(t *testing.T) domain.CartRepository {
	t.Helper()
	return NewCartRepository(dbtest.Open(t, &domain.Cart{}, &domain.CartItem{}))
}

func TestCreateRejectsSecondCartForOwner(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	for _, owner := range []domain.Owner{domain.UserOwner(1), domain.GuestOwner("tok")} {
		if err := repo.Create(ctx, domain.NewCart(owner)); err != nil {
			t.Fatalf("create %v: %v", owner, err)
		}
		err := repo.Create(ctx, domain.NewCart(owner))
		if !errors.Is(err, domain.ErrCartAlreadyExists) {
			t.Errorf("second create for %v: err = %v", owner, err)
		}
	}
}

func TestDuplicateInsertKeepsOuterTransactionUsable(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	owner := domain.UserOwner(2)
	if err := repo.Create(ctx, domain.NewCart(owner)); err != nil {
		t.Fatal(err)
	}

	err := repo.Transaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, domain.NewCart(owner)); !errors.Is(err, domain.ErrCartAlreadyExists) {
			t.Errorf("err = %v", err)
		}
		cart, err := repo.GetByOwnerForUpdate(ctx, owner)
		if err != nil {
			return err
		}
		if cart == nil {
			t.Error("existing cart should be visible after the rolled back savepoint")
		}
		return repo.Create(ctx, domain.NewCart(domain.GuestOwner("after")))
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	cart, err := repo.GetByOwner(ctx, domain.GuestOwner("after"))
	if err != nil || cart == nil {
		t.Fatalf("insert after the savepoint should commit: %v %v", cart, err)
	}
}

func TestOwnerScopeIsolatesCarts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	user := domain.NewCart(domain.UserOwner(5))
	guest := domain.NewCart(domain.GuestOwner("5"))
	for _, c := range []*domain.Cart{user, guest} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.GetByOwner(ctx, domain.UserOwner(5))
	if err != nil || got == nil || got.ID != user.ID {
		t.Fatalf("user lookup = %+v, %v", got, err)
	}
	got, err = repo.GetByOwner(ctx, domain.GuestOwner("5"))
	if err != nil || got == nil || got.ID != guest.ID {
		t.Fatalf("guest lookup = %+v, %v", got, err)
	}
	got, err = repo.GetByOwner(ctx, domain.Owner{})
	if err != nil || got != nil {
		t.Fatalf("invalid owner must match nothing, got %+v, %v", got, err)
	}
}

func TestItemLifecycle(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	cart := domain.NewCart(domain.UserOwner(1))
	if err := repo.Create(ctx, cart); err != nil {
		t.Fatal(err)
	}

	hit, err := repo.IncrementItemQuantity(ctx, cart.ID, 3, 2)
	if err != nil || hit {
		t.Fatalf("increment on a missing line: hit=%v err=%v", hit, err)
	}

	item := &domain.CartItem{CartID: cart.ID, VariantID: 3, ProductID: 1, Quantity: 2}
	if err := repo.CreateItem(ctx, item); err != nil {
		t.Fatal(err)
	}
	dup := &domain.CartItem{CartID: cart.ID, VariantID: 3, ProductID: 1, Quantity: 1}
	if err := repo.CreateItem(ctx, dup); !errors.Is(err, domain.ErrItemAlreadyExists) {
		t.Fatalf("duplicate line: err = %v", err)
	}

	if hit, err := repo.IncrementItemQuantity(ctx, cart.ID, 3, 4); err != nil || !hit {
		t.Fatalf("increment: hit=%v err=%v", hit, err)
	}
	got, err := repo.GetItemByVariant(ctx, cart.ID, 3)
	if err != nil || got == nil || got.Quantity != 6 {
		t.Fatalf("line after increment = %+v, %v", got, err)
	}

	if err := repo.SetItemQuantity(ctx, cart.ID, item.ID, 1); err != nil {
		t.Fatal(err)
	}
	got, _ = repo.GetItem(ctx, cart.ID, item.ID)
	if got.Quantity != 1 {
		t.Errorf("quantity after set = %d", got.Quantity)
	}

	if removed, _ := repo.DeleteItem(ctx, cart.ID+1, item.ID); removed {
		t.Error("delete scoped to another cart must not remove the line")
	}
	if removed, err := repo.DeleteItem(ctx, cart.ID, item.ID); err != nil || !removed {
		t.Errorf("delete: removed=%v err=%v", removed, err)
	}
}

func TestDeleteCartRemovesItems(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	owner := domain.GuestOwner("bye")
	cart := domain.NewCart(owner)
	if err := repo.Create(ctx, cart); err != nil {
		t.Fatal(err)
	}
	for v := uint(1); v <= 3; v++ {
		if err := repo.CreateItem(ctx, &domain.CartItem{CartID: cart.ID, VariantID: v, ProductID: 1, Quantity: 1}); err != nil {
			t.Fatal(err)
		}
	}

	locked, err := repo.GetByOwnerForUpdate(ctx, owner)
	if err != nil || len(locked.Items) != 3 {
		t.Fatalf("locked read = %+v, %v", locked, err)
	}

	if err := repo.DeleteCart(ctx, cart.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := repo.GetByOwner(ctx, owner); got != nil {
		t.Error("cart must be gone")
	}
	if got, _ := repo.GetItemByVariant(ctx, cart.ID, 1); got != nil {
		t.Error("items must be deleted with the cart")
	}
}

func TestClearItemsKeepsCart(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	owner := domain.UserOwner(8)
	cart := domain.NewCart(owner)
	if err := repo.Create(ctx, cart); err != nil {
		t.Fatal(err)
	}
	_ = repo.CreateItem(ctx, &domain.CartItem{CartID: cart.ID, VariantID: 1, ProductID: 1, Quantity: 1})
	_ = repo.CreateItem(ctx, &domain.CartItem{CartID: cart.ID, VariantID: 2, ProductID: 1, Quantity: 1})

	n, err := repo.ClearItems(ctx, cart.ID)
	if err != nil || n != 2 {
		t.Fatalf("cleared %d, err %v", n, err)
	}
	got, err := repo.GetByOwner(ctx, owner)
	if err != nil || got == nil || len(got.Items) != 0 || got.Items == nil {
		t.Fatalf("cart after clear = %+v, %v", got, err)
	}
}
