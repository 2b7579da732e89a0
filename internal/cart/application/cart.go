// Package application 购物车应用服务：归属者无关的核心操作与面向用户、游客的薄封装
package application

import (
	"context"

	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/metrics"
)

// CartApplicationService 购物车服务门面，整合命令服务和查询服务
type CartApplicationService struct {
	commandService *CartCommandService
	queryService   *CartQueryService
}

// NewCartApplicationService 创建购物车服务门面实例，cache 与 m 可以为 nil
func NewCartApplicationService(
	repo domain.CartRepository,
	catalog domain.VariantCatalog,
	cache domain.CartCache,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
) *CartApplicationService {
	return &CartApplicationService{
		commandService: NewCartCommandService(repo, catalog, cache, publisher, m),
		queryService:   NewCartQueryService(repo, catalog, cache, publisher, m),
	}
}

// GetOrCreateCart 获取归属者的购物车
func (s *CartApplicationService) GetOrCreateCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	return s.queryService.GetOrCreateCart(ctx, owner)
}

// GetCartSummary 获取购物车汇总
func (s *CartApplicationService) GetCartSummary(ctx context.Context, owner domain.Owner) (domain.Summary, error) {
	return s.queryService.GetCartSummary(ctx, owner)
}

// CreateGuestCart 创建游客购物车，返回游客令牌与购物车
func (s *CartApplicationService) CreateGuestCart(ctx context.Context) (string, *domain.Cart, error) {
	cart, err := s.commandService.CreateGuestCart(ctx)
	if err != nil {
		return "", nil, err
	}
	token, _ := cart.Owner().GuestToken()
	return token, cart, nil
}

// AddItem 添加商品
func (s *CartApplicationService) AddItem(ctx context.Context, owner domain.Owner, sel ItemSelector, quantity int) (*domain.Cart, error) {
	return s.commandService.AddItem(ctx, AddItemCommand{Owner: owner, Selector: sel, Quantity: quantity})
}

// UpdateItem 修改行项目数量
func (s *CartApplicationService) UpdateItem(ctx context.Context, owner domain.Owner, itemID uint, sel ItemSelector, quantity int) (*domain.Cart, error) {
	return s.commandService.UpdateItem(ctx, UpdateItemCommand{Owner: owner, ItemID: itemID, Selector: sel, Quantity: quantity})
}

// RemoveItem 删除行项目
func (s *CartApplicationService) RemoveItem(ctx context.Context, owner domain.Owner, itemID uint) (*domain.Cart, error) {
	return s.commandService.RemoveItem(ctx, RemoveItemCommand{Owner: owner, ItemID: itemID})
}

// Clear 清空购物车
func (s *CartApplicationService) Clear(ctx context.Context, owner domain.Owner) error {
	return s.commandService.ClearCart(ctx, ClearCartCommand{Owner: owner})
}

// RemoveVariantQuantity 扣减用户购物车中某规格的数量
func (s *CartApplicationService) RemoveVariantQuantity(ctx context.Context, userID uint64, variantID uint, quantity int) (*domain.Cart, error) {
	return s.commandService.RemoveVariantQuantity(ctx, RemoveVariantQuantityCommand{
		UserID:    userID,
		VariantID: variantID,
		Quantity:  quantity,
	})
}

// MergeGuestCart 登录时合并游客购物车
func (s *CartApplicationService) MergeGuestCart(ctx context.Context, userID uint64, guestToken string) (*domain.Cart, error) {
	return s.commandService.MergeGuestCart(ctx, MergeGuestCartCommand{UserID: userID, GuestToken: guestToken})
}

// GetCart 供结算使用：直接读库得到用户的完整购物车，不读缓存快照
func (s *CartApplicationService) GetCart(ctx context.Context, userID uint64) (*domain.Cart, error) {
	return s.queryService.LoadCart(ctx, domain.UserOwner(userID))
}

// ClearCart 供结算使用：下单成功后清空用户购物车
func (s *CartApplicationService) ClearCart(ctx context.Context, userID uint64) error {
	return s.Clear(ctx, domain.UserOwner(userID))
}

// AddItemForUser 用户添加商品
func (s *CartApplicationService) AddItemForUser(ctx context.Context, userID uint64, sel ItemSelector, quantity int) (*domain.Cart, error) {
	return s.AddItem(ctx, domain.UserOwner(userID), sel, quantity)
}

// AddItemForGuest 游客添加商品
func (s *CartApplicationService) AddItemForGuest(ctx context.Context, guestToken string, sel ItemSelector, quantity int) (*domain.Cart, error) {
	return s.AddItem(ctx, domain.GuestOwner(guestToken), sel, quantity)
}

// GetGuestCart 获取游客购物车
func (s *CartApplicationService) GetGuestCart(ctx context.Context, guestToken string) (*domain.Cart, error) {
	return s.GetOrCreateCart(ctx, domain.GuestOwner(guestToken))
}
