package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/cache"
)

func newCache(t *testing.T) (domain.CartCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCartCache(cache.NewFromClient(client), time.Minute), mr
}

func snapshot(id uint, qty int) *domain.Cart {
	return &domain.Cart{ID: id, Items: []*domain.CartItem{{CartID: id, VariantID: 1, Quantity: qty}}}
}

func TestSetAndGet(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	owner := domain.GuestOwner("tok")

	if _, ok, err := c.Get(ctx, owner); err != nil || ok {
		t.Fatalf("empty cache Get = %v, %v", ok, err)
	}
	v, err := c.Version(ctx, owner)
	if err != nil || v != 0 {
		t.Fatalf("initial version = %d, %v", v, err)
	}

	stored, err := c.Set(ctx, owner, snapshot(3, 2), v)
	if err != nil || !stored {
		t.Fatalf("Set = %v, %v", stored, err)
	}
	got, ok, err := c.Get(ctx, owner)
	if err != nil || !ok || got.ID != 3 || got.Items[0].Quantity != 2 {
		t.Fatalf("Get = %+v, %v, %v", got, ok, err)
	}
	if ttl := mr.TTL(keyPrefix + owner.Key()); ttl != time.Minute {
		t.Errorf("snapshot ttl = %s", ttl)
	}
}

func TestSetAfterInvalidateIsRejected(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	owner := domain.UserOwner(7)

	before, err := c.Version(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Invalidate(ctx, owner); err != nil {
		t.Fatal(err)
	}

	stored, err := c.Set(ctx, owner, snapshot(1, 5), before)
	if err != nil {
		t.Fatal(err)
	}
	if stored {
		t.Fatal("snapshot read before invalidation must not be stored")
	}
	if _, ok, _ := c.Get(ctx, owner); ok {
		t.Fatal("rejected snapshot is visible")
	}

	after, err := c.Version(ctx, owner)
	if err != nil || after != before+1 {
		t.Fatalf("version after invalidate = %d, %v", after, err)
	}
	if stored, err := c.Set(ctx, owner, snapshot(1, 5), after); err != nil || !stored {
		t.Fatalf("Set with current version = %v, %v", stored, err)
	}
}

func TestInvalidateSeveralOwners(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	user, guest, other := domain.UserOwner(1), domain.GuestOwner("g"), domain.UserOwner(2)

	for _, o := range []domain.Owner{user, guest, other} {
		if _, err := c.Set(ctx, o, snapshot(1, 1), 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Invalidate(ctx, user, guest); err != nil {
		t.Fatal(err)
	}

	for _, o := range []domain.Owner{user, guest} {
		if _, ok, _ := c.Get(ctx, o); ok {
			t.Errorf("%s still cached", o)
		}
		if ttl := mr.TTL(versionPrefix + o.Key()); ttl != minVersionTTL {
			t.Errorf("%s version ttl = %s", o, ttl)
		}
	}
	if _, ok, _ := c.Get(ctx, other); !ok {
		t.Error("unrelated owner was evicted")
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Errorf("Invalidate() with no owners = %v", err)
	}
}
