package domain

import "time"

const (
	TopicCartCreated     = "cart.created"
	TopicCartItemAdded   = "cart.item.added"
	TopicCartItemUpdated = "cart.item.updated"
	TopicCartItemRemoved = "cart.item.removed"
	TopicCartCleared     = "cart.cleared"
	TopicCartGuestMerged = "cart.guest.merged"
)

// CartCreatedEvent 购物车创建事件
type CartCreatedEvent struct {
	CartID    uint      `json:"cart_id"`
	OwnerType string    `json:"owner_type"`
	UserID    uint64    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CartItemAddedEvent 购物车添加商品事件，Quantity 为本次增加的数量
type CartItemAddedEvent struct {
	CartID    uint      `json:"cart_id"`
	UserID    uint64    `json:"user_id,omitempty"`
	VariantID uint      `json:"variant_id"`
	ProductID uint      `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

// CartItemUpdatedEvent 行项目数量变更事件
type CartItemUpdatedEvent struct {
	CartID    uint      `json:"cart_id"`
	UserID    uint64    `json:"user_id,omitempty"`
	ItemID    uint      `json:"item_id"`
	VariantID uint      `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

// CartItemRemovedEvent 购物车移除商品事件
type CartItemRemovedEvent struct {
	CartID    uint      `json:"cart_id"`
	UserID    uint64    `json:"user_id,omitempty"`
	ItemID    uint      `json:"item_id"`
	VariantID uint      `json:"variant_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CartClearedEvent 购物车清空事件
type CartClearedEvent struct {
	CartID       uint      `json:"cart_id"`
	UserID       uint64    `json:"user_id,omitempty"`
	RemovedItems int64     `json:"removed_items"`
	Timestamp    time.Time `json:"timestamp"`
}

// CartGuestMergedEvent 游客购物车并入用户购物车事件
type CartGuestMergedEvent struct {
	UserCartID   uint      `json:"user_cart_id"`
	GuestCartID  uint      `json:"guest_cart_id"`
	UserID       uint64    `json:"user_id"`
	MergedLines  int       `json:"merged_lines"`
	AddedLines   int       `json:"added_lines"`
	SkippedLines int       `json:"skipped_lines"`
	Timestamp    time.Time `json:"timestamp"`
}
