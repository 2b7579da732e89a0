package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
	"github.com/wyfcoding/storefront/pkg/metrics"
)

// AddItemCommand 添加商品到购物车命令
type AddItemCommand struct {
	Owner    domain.Owner
	Selector ItemSelector
	Quantity int
}

// UpdateItemCommand 修改行项目数量命令，ItemID 为空时按 Selector 定位
type UpdateItemCommand struct {
	Owner    domain.Owner
	ItemID   uint
	Selector ItemSelector
	Quantity int
}

// RemoveItemCommand 从购物车移除商品命令
type RemoveItemCommand struct {
	Owner  domain.Owner
	ItemID uint
}

// RemoveVariantQuantityCommand 按规格扣减数量命令
type RemoveVariantQuantityCommand struct {
	UserID    uint64
	VariantID uint
	Quantity  int
}

// ClearCartCommand 清空购物车命令
type ClearCartCommand struct {
	Owner domain.Owner
}

// MergeGuestCartCommand 游客购物车并入用户购物车命令
type MergeGuestCartCommand struct {
	UserID     uint64
	GuestToken string
}

// CartCommandService 购物车命令服务
type CartCommandService struct {
	support  *cartSupport
	resolver *variantResolver
}

// NewCartCommandService 创建购物车命令服务实例，cache 与 m 可以为 nil
func NewCartCommandService(
	repo domain.CartRepository,
	catalog domain.VariantCatalog,
	cache domain.CartCache,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
) *CartCommandService {
	return &CartCommandService{
		support: &cartSupport{
			repo:      repo,
			catalog:   catalog,
			cache:     cache,
			publisher: publisher,
			metrics:   m,
		},
		resolver: &variantResolver{catalog: catalog},
	}
}

// CreateGuestCart 生成新的游客令牌并创建空购物车
func (s *CartCommandService) CreateGuestCart(ctx context.Context) (cart *domain.Cart, err error) {
	defer func() { s.support.metrics.RecordCartOperation("create_guest_cart", err) }()

	owner := domain.GuestOwner(uuid.NewString())
	cart, created, err := s.support.fetch(ctx, owner)
	if err != nil {
		return nil, err
	}
	if created {
		s.support.publishCreated(ctx, cart)
	}
	logger.Info(ctx, "guest cart created", "cart_id", cart.ID)
	return cart, nil
}

// AddItem 解析规格后累加到已有行或新建一行。
// 整个过程在一个事务中完成，解析时生成的默认规格随失败一起回滚。
func (s *CartCommandService) AddItem(ctx context.Context, cmd AddItemCommand) (cart *domain.Cart, err error) {
	defer func() { s.support.metrics.RecordCartOperation("add_item", err) }()

	if err := cmd.Owner.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateQuantity(cmd.Quantity); err != nil {
		return nil, err
	}
	if err := cmd.Selector.Validate(); err != nil {
		return nil, err
	}

	var (
		target  *domain.Cart
		variant *domain.Variant
		created bool
	)
	err = s.support.repo.Transaction(ctx, func(ctx context.Context) error {
		v, err := s.resolver.resolve(ctx, cmd.Selector, true)
		if err != nil {
			return err
		}
		variant = v

		target, created, err = s.support.getOrCreate(ctx, cmd.Owner, false)
		if err != nil {
			return err
		}
		return s.accumulate(ctx, target.ID, variant, cmd.Quantity)
	})
	if err != nil {
		return nil, err
	}

	s.support.invalidate(ctx, cmd.Owner)
	if created {
		s.support.publishCreated(ctx, target)
	}
	s.support.publish(ctx, domain.TopicCartItemAdded, target.ID, domain.CartItemAddedEvent{
		CartID:    target.ID,
		UserID:    ownerUserID(cmd.Owner),
		VariantID: variant.ID,
		ProductID: variant.ProductID,
		Quantity:  cmd.Quantity,
		Timestamp: time.Now(),
	})

	cart, _, err = s.support.fetch(ctx, cmd.Owner)
	return cart, err
}

// accumulate 已有行累加数量，否则插入；并发插入同一规格时退回累加
func (s *CartCommandService) accumulate(ctx context.Context, cartID uint, variant *domain.Variant, quantity int) error {
	hit, err := s.support.repo.IncrementItemQuantity(ctx, cartID, variant.ID, quantity)
	if err != nil || hit {
		return err
	}

	err = s.support.repo.CreateItem(ctx, &domain.CartItem{
		CartID:    cartID,
		VariantID: variant.ID,
		ProductID: variant.ProductID,
		Quantity:  quantity,
	})
	if !errors.Is(err, domain.ErrItemAlreadyExists) {
		return err
	}

	hit, err = s.support.repo.IncrementItemQuantity(ctx, cartID, variant.ID, quantity)
	if err != nil {
		return err
	}
	if !hit {
		return fmt.Errorf("cart %d: variant %d line vanished during add", cartID, variant.ID)
	}
	return nil
}

// UpdateItem 把行项目数量设置为指定值。只在归属者自己的购物车中查找，其他购物车的行视为不存在。
func (s *CartCommandService) UpdateItem(ctx context.Context, cmd UpdateItemCommand) (cart *domain.Cart, err error) {
	defer func() { s.support.metrics.RecordCartOperation("update_item", err) }()

	if err := cmd.Owner.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateQuantity(cmd.Quantity); err != nil {
		return nil, err
	}
	if cmd.ItemID == 0 {
		if err := cmd.Selector.Validate(); err != nil {
			return nil, fmt.Errorf("%w: item_id, variant_id or product_id is required", domain.ErrInvalidRequest)
		}
	}

	var target *domain.CartItem
	err = s.support.repo.Transaction(ctx, func(ctx context.Context) error {
		owned, err := s.support.repo.GetByOwner(ctx, cmd.Owner)
		if err != nil {
			return err
		}
		if owned == nil {
			return domain.ErrItemNotFound
		}

		if cmd.ItemID != 0 {
			target, err = s.support.repo.GetItem(ctx, owned.ID, cmd.ItemID)
		} else {
			var v *domain.Variant
			v, err = s.resolver.resolve(ctx, cmd.Selector, false)
			if err != nil {
				return err
			}
			target, err = s.support.repo.GetItemByVariant(ctx, owned.ID, v.ID)
		}
		if err != nil {
			return err
		}
		if target == nil {
			return domain.ErrItemNotFound
		}

		target.Quantity = cmd.Quantity
		return s.support.repo.SetItemQuantity(ctx, owned.ID, target.ID, cmd.Quantity)
	})
	if err != nil {
		return nil, err
	}

	s.support.invalidate(ctx, cmd.Owner)
	s.support.publish(ctx, domain.TopicCartItemUpdated, target.CartID, domain.CartItemUpdatedEvent{
		CartID:    target.CartID,
		UserID:    ownerUserID(cmd.Owner),
		ItemID:    target.ID,
		VariantID: target.VariantID,
		Quantity:  target.Quantity,
		Timestamp: time.Now(),
	})

	cart, _, err = s.support.fetch(ctx, cmd.Owner)
	return cart, err
}

// RemoveItem 删除归属者购物车中的指定行
func (s *CartCommandService) RemoveItem(ctx context.Context, cmd RemoveItemCommand) (cart *domain.Cart, err error) {
	defer func() { s.support.metrics.RecordCartOperation("remove_item", err) }()

	if err := cmd.Owner.Validate(); err != nil {
		return nil, err
	}
	if cmd.ItemID == 0 {
		return nil, fmt.Errorf("%w: item_id is required", domain.ErrInvalidRequest)
	}

	owned, err := s.support.repo.GetByOwner(ctx, cmd.Owner)
	if err != nil {
		return nil, err
	}
	if owned == nil {
		return nil, domain.ErrItemNotFound
	}
	removed, err := s.support.repo.DeleteItem(ctx, owned.ID, cmd.ItemID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, domain.ErrItemNotFound
	}

	var variantID uint
	if item := owned.FindItem(cmd.ItemID); item != nil {
		variantID = item.VariantID
	}
	s.support.invalidate(ctx, cmd.Owner)
	s.support.publish(ctx, domain.TopicCartItemRemoved, owned.ID, domain.CartItemRemovedEvent{
		CartID:    owned.ID,
		UserID:    ownerUserID(cmd.Owner),
		ItemID:    cmd.ItemID,
		VariantID: variantID,
		Timestamp: time.Now(),
	})

	cart, _, err = s.support.fetch(ctx, cmd.Owner)
	return cart, err
}

// RemoveVariantQuantity 扣减用户购物车中某规格的数量，扣减量不小于持有量时删除整行
func (s *CartCommandService) RemoveVariantQuantity(ctx context.Context, cmd RemoveVariantQuantityCommand) (cart *domain.Cart, err error) {
	defer func() { s.support.metrics.RecordCartOperation("remove_variant_quantity", err) }()

	owner := domain.UserOwner(cmd.UserID)
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateQuantity(cmd.Quantity); err != nil {
		return nil, err
	}

	var (
		item    *domain.CartItem
		deleted bool
	)
	err = s.support.repo.Transaction(ctx, func(ctx context.Context) error {
		owned, err := s.support.repo.GetByOwner(ctx, owner)
		if err != nil {
			return err
		}
		if owned == nil {
			return domain.ErrItemNotFound
		}
		item, err = s.support.repo.GetItemByVariant(ctx, owned.ID, cmd.VariantID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}

		if cmd.Quantity >= item.Quantity {
			deleted = true
			_, err = s.support.repo.DeleteItem(ctx, owned.ID, item.ID)
			return err
		}
		item.Quantity -= cmd.Quantity
		return s.support.repo.SetItemQuantity(ctx, owned.ID, item.ID, item.Quantity)
	})
	if err != nil {
		return nil, err
	}

	s.support.invalidate(ctx, owner)
	if deleted {
		s.support.publish(ctx, domain.TopicCartItemRemoved, item.CartID, domain.CartItemRemovedEvent{
			CartID:    item.CartID,
			UserID:    cmd.UserID,
			ItemID:    item.ID,
			VariantID: item.VariantID,
			Timestamp: time.Now(),
		})
	} else {
		s.support.publish(ctx, domain.TopicCartItemUpdated, item.CartID, domain.CartItemUpdatedEvent{
			CartID:    item.CartID,
			UserID:    cmd.UserID,
			ItemID:    item.ID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Timestamp: time.Now(),
		})
	}

	cart, _, err = s.support.fetch(ctx, owner)
	return cart, err
}

// ClearCart 删除全部行项目，购物车本身保留；归属者还没有购物车时什么也不做
func (s *CartCommandService) ClearCart(ctx context.Context, cmd ClearCartCommand) (err error) {
	defer func() { s.support.metrics.RecordCartOperation("clear", err) }()

	if err := cmd.Owner.Validate(); err != nil {
		return err
	}

	owned, err := s.support.repo.GetByOwner(ctx, cmd.Owner)
	if err != nil {
		return err
	}
	if owned == nil {
		return nil
	}
	removed, err := s.support.repo.ClearItems(ctx, owned.ID)
	if err != nil {
		return err
	}

	s.support.invalidate(ctx, cmd.Owner)
	s.support.publish(ctx, domain.TopicCartCleared, owned.ID, domain.CartClearedEvent{
		CartID:       owned.ID,
		UserID:       ownerUserID(cmd.Owner),
		RemovedItems: removed,
		Timestamp:    time.Now(),
	})
	return nil
}

// MergeGuestCart 把游客购物车并入用户购物车并删除游客购物车。
// 在一个事务中先锁用户购物车再锁游客购物车，固定的加锁顺序避免与并发合并死锁。
// 游客购物车不存在时直接返回用户购物车，因此同一令牌重复合并是无操作。
func (s *CartCommandService) MergeGuestCart(ctx context.Context, cmd MergeGuestCartCommand) (cart *domain.Cart, err error) {
	defer func() { s.support.metrics.RecordCartOperation("merge_guest_cart", err) }()

	userOwner := domain.UserOwner(cmd.UserID)
	guestOwner := domain.GuestOwner(cmd.GuestToken)
	if err := userOwner.Validate(); err != nil {
		return nil, err
	}
	if err := guestOwner.Validate(); err != nil {
		return nil, err
	}

	var (
		user        *domain.Cart
		guest       *domain.Cart
		userCreated bool
		result      domain.MergeResult
	)
	err = s.support.repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.support.repo.GetByOwnerForUpdate(ctx, userOwner)
		if err != nil {
			return err
		}
		guest, err = s.support.repo.GetByOwnerForUpdate(ctx, guestOwner)
		if err != nil {
			return err
		}

		if user == nil {
			user, userCreated, err = s.support.getOrCreate(ctx, userOwner, true)
			if err != nil {
				if !errors.Is(err, domain.ErrCartCreationFailure) {
					err = fmt.Errorf("%w: %v", domain.ErrCartCreationFailure, err)
				}
				return err
			}
		}

		if guest == nil {
			return nil
		}
		if len(guest.Items) == 0 {
			return s.support.repo.DeleteCart(ctx, guest.ID)
		}

		if err := s.support.populate(ctx, user, guest); err != nil {
			return err
		}
		result = user.MergeLines(guest.Items)

		for _, item := range result.Updated {
			if err := s.support.repo.SetItemQuantity(ctx, user.ID, item.ID, item.Quantity); err != nil {
				return err
			}
		}
		for _, item := range result.Created {
			if err := s.support.repo.CreateItem(ctx, item); err != nil {
				return fmt.Errorf("merge variant %d into cart %d: %w", item.VariantID, user.ID, err)
			}
		}
		for _, line := range result.Skipped {
			logger.Warn(ctx, "skipping unresolvable guest cart line",
				"guest_cart_id", guest.ID,
				"item_id", line.ID,
				"variant_id", line.VariantID,
				"quantity", line.Quantity,
			)
		}

		return s.support.repo.DeleteCart(ctx, guest.ID)
	})
	if err != nil {
		logger.Error(ctx, "guest cart merge rolled back", "user_id", cmd.UserID, "error", err)
		return nil, err
	}

	s.support.invalidate(ctx, userOwner, guestOwner)
	if userCreated {
		s.support.publishCreated(ctx, user)
	}
	switch {
	case guest == nil:
	case len(guest.Items) == 0:
		logger.Info(ctx, "empty guest cart removed during merge",
			"user_id", cmd.UserID,
			"user_cart_id", user.ID,
			"guest_cart_id", guest.ID,
		)
	default:
		s.support.metrics.RecordMergeLines("merged", result.Merged)
		s.support.metrics.RecordMergeLines("added", len(result.Created))
		s.support.metrics.RecordMergeLines("skipped", len(result.Skipped))
		s.support.publish(ctx, domain.TopicCartGuestMerged, user.ID, domain.CartGuestMergedEvent{
			UserCartID:   user.ID,
			GuestCartID:  guest.ID,
			UserID:       cmd.UserID,
			MergedLines:  result.Merged,
			AddedLines:   len(result.Created),
			SkippedLines: len(result.Skipped),
			Timestamp:    time.Now(),
		})
		logger.Info(ctx, "guest cart merged",
			"user_id", cmd.UserID,
			"user_cart_id", user.ID,
			"guest_cart_id", guest.ID,
			"merged", result.Merged,
			"added", len(result.Created),
			"skipped", len(result.Skipped),
		)
	}

	cart, _, err = s.support.fetch(ctx, userOwner)
	return cart, err
}
