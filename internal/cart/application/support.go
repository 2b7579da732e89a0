package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/metrics"
)

// cartSupport 命令服务与查询服务共用的加载、创建、通知逻辑
type cartSupport struct {
	repo      domain.CartRepository
	catalog   domain.VariantCatalog
	cache     domain.CartCache
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
}

// getOrCreate 查找归属者的购物车，不存在则创建。
// 并发创建导致唯一键冲突时改为加锁读取，锁定读能看到其他事务刚提交的行。
func (s *cartSupport) getOrCreate(ctx context.Context, owner domain.Owner, lock bool) (*domain.Cart, bool, error) {
	var (
		cart *domain.Cart
		err  error
	)
	if lock {
		cart, err = s.repo.GetByOwnerForUpdate(ctx, owner)
	} else {
		cart, err = s.repo.GetByOwner(ctx, owner)
	}
	if err != nil {
		return nil, false, err
	}
	if cart != nil {
		return cart, false, nil
	}

	cart = domain.NewCart(owner)
	err = s.repo.Create(ctx, cart)
	if err == nil {
		return cart, true, nil
	}
	if !errors.Is(err, domain.ErrCartAlreadyExists) {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrCartCreationFailure, err)
	}

	cart, err = s.repo.GetByOwnerForUpdate(ctx, owner)
	if err != nil {
		return nil, false, err
	}
	if cart == nil {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrCartCreationFailure, owner)
	}
	return cart, false, nil
}

// fetch 读取并填充归属者的购物车，不存在时创建
func (s *cartSupport) fetch(ctx context.Context, owner domain.Owner) (*domain.Cart, bool, error) {
	cart, created, err := s.getOrCreate(ctx, owner, false)
	if err != nil {
		return nil, false, err
	}
	if created {
		cart, err = s.repo.GetByOwner(ctx, owner)
		if err != nil {
			return nil, false, err
		}
		if cart == nil {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrCartCreationFailure, owner)
		}
	}
	if err := s.populate(ctx, cart); err != nil {
		return nil, false, err
	}
	return cart, created, nil
}

// populate 从商品目录批量读取规格并挂到行项目上
func (s *cartSupport) populate(ctx context.Context, carts ...*domain.Cart) error {
	var ids []uint
	seen := make(map[uint]bool)
	for _, cart := range carts {
		if cart == nil {
			continue
		}
		if cart.Items == nil {
			cart.Items = []*domain.CartItem{}
		}
		for _, item := range cart.Items {
			if !seen[item.VariantID] {
				seen[item.VariantID] = true
				ids = append(ids, item.VariantID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	variants, err := s.catalog.FindVariantsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load variants: %w", err)
	}
	for _, cart := range carts {
		if cart == nil {
			continue
		}
		for _, item := range cart.Items {
			item.Variant = variants[item.VariantID]
			if item.Variant == nil {
				logger.Warn(ctx, "cart item references a missing variant",
					"cart_id", cart.ID, "item_id", item.ID, "variant_id", item.VariantID)
			}
		}
	}
	return nil
}

// invalidate 提交后清理缓存，失败只记录日志
func (s *cartSupport) invalidate(ctx context.Context, owners ...domain.Owner) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, owners...); err != nil {
		logger.Warn(ctx, "failed to invalidate cart cache", "error", err)
	}
}

// publish 提交后发布事件，失败只记录日志
func (s *cartSupport) publish(ctx context.Context, topic string, cartID uint, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, strconv.FormatUint(uint64(cartID), 10), event); err != nil {
		logger.Warn(ctx, "failed to publish cart event", "topic", topic, "cart_id", cartID, "error", err)
	}
}

func (s *cartSupport) publishCreated(ctx context.Context, cart *domain.Cart) {
	owner := cart.Owner()
	userID, _ := owner.UserID()
	s.publish(ctx, domain.TopicCartCreated, cart.ID, domain.CartCreatedEvent{
		CartID:    cart.ID,
		OwnerType: owner.Kind().String(),
		UserID:    userID,
		Timestamp: time.Now(),
	})
}

func ownerUserID(owner domain.Owner) uint64 {
	id, _ := owner.UserID()
	return id
}
