package application

import (
	"context"

	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/metrics"
)

// CartQueryService 购物车查询服务
type CartQueryService struct {
	support *cartSupport
}

// NewCartQueryService 创建购物车查询服务实例，cache 与 m 可以为 nil
func NewCartQueryService(
	repo domain.CartRepository,
	catalog domain.VariantCatalog,
	cache domain.CartCache,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
) *CartQueryService {
	return &CartQueryService{
		support: &cartSupport{
			repo:      repo,
			catalog:   catalog,
			cache:     cache,
			publisher: publisher,
			metrics:   m,
		},
	}
}

// GetOrCreateCart 返回归属者的购物车，不存在时创建。优先读缓存，缓存不可用时直接读库。
// 读库前先取缓存版本号，写回时版本已变则放弃，避免把并发修改前的快照写进缓存。
func (s *CartQueryService) GetOrCreateCart(ctx context.Context, owner domain.Owner) (cart *domain.Cart, err error) {
	defer func() { s.support.metrics.RecordCartOperation("get_cart", err) }()

	if err := owner.Validate(); err != nil {
		return nil, err
	}

	var (
		version   int64
		cacheable bool
	)
	if s.support.cache != nil {
		cached, ok, err := s.support.cache.Get(ctx, owner)
		if err != nil {
			logger.Warn(ctx, "failed to read cart cache", "owner", owner.String(), "error", err)
		} else if ok {
			return cached, nil
		}

		version, err = s.support.cache.Version(ctx, owner)
		if err != nil {
			logger.Warn(ctx, "failed to read cart cache version", "owner", owner.String(), "error", err)
		} else {
			cacheable = true
		}
	}

	cart, err = s.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	if cacheable {
		stored, err := s.support.cache.Set(ctx, owner, cart, version)
		switch {
		case err != nil:
			logger.Warn(ctx, "failed to write cart cache", "owner", owner.String(), "error", err)
		case !stored:
			logger.Debug(ctx, "cart changed during read, snapshot not cached", "owner", owner.String())
		}
	}
	return cart, nil
}

// LoadCart 直接读库，不经过缓存，结算等需要读到已提交状态的调用方使用
func (s *CartQueryService) LoadCart(ctx context.Context, owner domain.Owner) (cart *domain.Cart, err error) {
	defer func() { s.support.metrics.RecordCartOperation("load_cart", err) }()

	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return s.load(ctx, owner)
}

func (s *CartQueryService) load(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	cart, created, err := s.support.fetch(ctx, owner)
	if err != nil {
		return nil, err
	}
	if created {
		s.support.publishCreated(ctx, cart)
	}
	return cart, nil
}

// GetCartSummary 返回行数、总件数与总金额
func (s *CartQueryService) GetCartSummary(ctx context.Context, owner domain.Owner) (domain.Summary, error) {
	cart, err := s.GetOrCreateCart(ctx, owner)
	if err != nil {
		return domain.Summary{}, err
	}
	return cart.Summary(), nil
}
