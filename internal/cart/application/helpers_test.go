package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/internal/cart/infrastructure/catalog"
	"github.com/wyfcoding/storefront/internal/cart/infrastructure/persistence/mysql"
	catalogapp "github.com/wyfcoding/storefront/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/storefront/internal/catalog/domain"
	catalogmysql "github.com/wyfcoding/storefront/internal/catalog/infrastructure/persistence/mysql"
	"github.com/wyfcoding/storefront/pkg/db/dbtest"
	"gorm.io/gorm"
)

type recordedEvent struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{topic: topic, key: key, event: event})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.topic)
	}
	return out
}

func (p *recordingPublisher) count(topic string) int {
	n := 0
	for _, t := range p.topics() {
		if t == topic {
			n++
		}
	}
	return n
}

type memoryCache struct {
	mu          sync.Mutex
	carts       map[string]*domain.Cart
	versions    map[string]int64
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{carts: make(map[string]*domain.Cart), versions: make(map[string]int64)}
}

func (c *memoryCache) Get(_ context.Context, owner domain.Owner) (*domain.Cart, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cart, ok := c.carts[owner.Key()]
	return cart, ok, nil
}

func (c *memoryCache) Version(_ context.Context, owner domain.Owner) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[owner.Key()], nil
}

func (c *memoryCache) Set(_ context.Context, owner domain.Owner, cart *domain.Cart, version int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[owner.Key()] != version {
		return false, nil
	}
	c.carts[owner.Key()] = cart
	return true, nil
}

func (c *memoryCache) Invalidate(_ context.Context, owners ...domain.Owner) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range owners {
		delete(c.carts, o.Key())
		c.versions[o.Key()]++
		c.invalidated = append(c.invalidated, o.Key())
	}
	return nil
}

func (c *memoryCache) cached(owner domain.Owner) (*domain.Cart, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cart, ok := c.carts[owner.Key()]
	return cart, ok
}

// pausingCatalog 被 pause 后，下一次 FindVariantsByIDs 在读库之后、返回之前停住
type pausingCatalog struct {
	domain.VariantCatalog

	mu      sync.Mutex
	reached chan struct{}
	release chan struct{}
}

func (c *pausingCatalog) pause() (reached <-chan struct{}, release chan<- struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reached = make(chan struct{})
	c.release = make(chan struct{})
	return c.reached, c.release
}

func (c *pausingCatalog) FindVariantsByIDs(ctx context.Context, ids []uint) (map[uint]*domain.Variant, error) {
	c.mu.Lock()
	reached, release := c.reached, c.release
	c.reached, c.release = nil, nil
	c.mu.Unlock()

	if reached != nil {
		close(reached)
		<-release
	}
	return c.VariantCatalog.FindVariantsByIDs(ctx, ids)
}

type testEnv struct {
	db     *gorm.DB
	repo   domain.CartRepository
	svc    *CartApplicationService
	events *recordingPublisher
	cache  *memoryCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := dbtest.Open(t, &catalogdomain.Product{}, &catalogdomain.Variant{}, &domain.Cart{}, &domain.CartItem{})
	return newTestEnvWithRepo(t, gdb, mysql.NewCartRepository(gdb))
}

func newTestEnvWithRepo(t *testing.T, gdb *gorm.DB, repo domain.CartRepository) *testEnv {
	t.Helper()
	return newTestEnvWith(t, gdb, repo, nil)
}

// newTestEnvWithCatalog wrap 用于在商品目录外再包一层
func newTestEnvWithCatalog(t *testing.T, wrap func(domain.VariantCatalog) domain.VariantCatalog) *testEnv {
	t.Helper()
	gdb := dbtest.Open(t, &catalogdomain.Product{}, &catalogdomain.Variant{}, &domain.Cart{}, &domain.CartItem{})
	return newTestEnvWith(t, gdb, mysql.NewCartRepository(gdb), wrap)
}

func newTestEnvWith(t *testing.T, gdb *gorm.DB, repo domain.CartRepository, wrap func(domain.VariantCatalog) domain.VariantCatalog) *testEnv {
	t.Helper()
	catalogService := catalogapp.NewCatalogApplicationService(
		catalogmysql.NewProductRepository(gdb),
		catalogmysql.NewVariantRepository(gdb),
		nil,
	)
	env := &testEnv{
		db:     gdb,
		repo:   repo,
		events: &recordingPublisher{},
		cache:  newMemoryCache(),
	}
	variants := catalog.NewVariantCatalog(catalogService)
	if wrap != nil {
		variants = wrap(variants)
	}
	env.svc = NewCartApplicationService(repo, variants, env.cache, env.events, nil)
	return env
}

func (e *testEnv) product(t *testing.T, id uint, price string) {
	t.Helper()
	p := &catalogdomain.Product{
		Model: gorm.Model{ID: id},
		Name:  "product",
		Price: decimal.RequireFromString(price),
		Stock: 100,
	}
	if err := e.db.Create(p).Error; err != nil {
		t.Fatalf("seed product %d: %v", id, err)
	}
}

func (e *testEnv) variant(t *testing.T, id, productID uint, color, size, price string) {
	t.Helper()
	v := &catalogdomain.Variant{
		ID:        id,
		ProductID: productID,
		Color:     color,
		Size:      size,
		Price:     decimal.RequireFromString(price),
		Stock:     10,
	}
	if err := e.db.Omit("Product").Create(v).Error; err != nil {
		t.Fatalf("seed variant %d: %v", id, err)
	}
}

// catalogFixture 商品 1 有规格 1、2；商品 10 有规格 55(Red/M)、56(Blue/L)
func (e *testEnv) catalogFixture(t *testing.T) {
	t.Helper()
	e.product(t, 1, "10")
	e.variant(t, 1, 1, "Black", "S", "10")
	e.variant(t, 2, 1, "White", "S", "12.5")
	e.product(t, 10, "30")
	e.variant(t, 55, 10, "Red", "M", "30")
	e.variant(t, 56, 10, "Blue", "L", "31")
}

func (e *testEnv) cartCount(t *testing.T, owner domain.Owner) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(&domain.Cart{})
	if id, ok := owner.UserID(); ok {
		q = q.Where("user_id = ?", id)
	} else {
		token, _ := owner.GuestToken()
		q = q.Where("guest_token = ?", token)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count carts: %v", err)
	}
	return n
}

func quantities(cart *domain.Cart) map[uint]int {
	out := make(map[uint]int, len(cart.Items))
	for _, item := range cart.Items {
		out[item.VariantID] += item.Quantity
	}
	return out
}

// mustCart 用法：mustCart(t)(svc.AddItem(...))
func mustCart(t *testing.T) func(*domain.Cart, error) *domain.Cart {
	t.Helper()
	return func(cart *domain.Cart, err error) *domain.Cart {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cart == nil {
			t.Fatal("expected a cart")
		}
		return cart
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("err = %v, want %v", err, target)
	}
}
