package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// CartRepository 购物车仓储。查询未找到时返回 nil, nil
type CartRepository interface {
	// Transaction 在同一事务中执行 fn，嵌套调用使用保存点
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	// GetByOwner 查询归属者的购物车及其行项目（按 id 排序）
	GetByOwner(ctx context.Context, owner Owner) (*Cart, error)
	// GetByOwnerForUpdate 同 GetByOwner，并对购物车行及其行项目加写锁，需在事务中调用
	GetByOwnerForUpdate(ctx context.Context, owner Owner) (*Cart, error)
	// Create 插入购物车，归属者已有购物车时返回 ErrCartAlreadyExists
	Create(ctx context.Context, cart *Cart) error
	// DeleteCart 删除购物车及其全部行项目
	DeleteCart(ctx context.Context, cartID uint) error

	GetItem(ctx context.Context, cartID, itemID uint) (*CartItem, error)
	GetItemByVariant(ctx context.Context, cartID, variantID uint) (*CartItem, error)
	// CreateItem 插入行项目，同一规格已存在时返回 ErrItemAlreadyExists
	CreateItem(ctx context.Context, item *CartItem) error
	// IncrementItemQuantity 原子地累加数量，返回是否命中已有行
	IncrementItemQuantity(ctx context.Context, cartID, variantID uint, delta int) (bool, error)
	SetItemQuantity(ctx context.Context, cartID, itemID uint, quantity int) error
	// DeleteItem 删除属于 cartID 的行项目，返回是否删除了行
	DeleteItem(ctx context.Context, cartID, itemID uint) (bool, error)
	// ClearItems 删除购物车的全部行项目，返回删除行数
	ClearItems(ctx context.Context, cartID uint) (int64, error)
}

// VariantCatalog 商品目录端口。查询未找到时返回 nil, nil
type VariantCatalog interface {
	FindVariantByID(ctx context.Context, id uint) (*Variant, error)
	// FindVariant color/size 为空表示不限，多条时取 id 最小的一条
	FindVariant(ctx context.Context, productID uint, color, size string) (*Variant, error)
	// FindDefaultVariant 返回 id 最小的规格
	FindDefaultVariant(ctx context.Context, productID uint) (*Variant, error)
	// CreateFallbackVariant 为没有规格的商品生成默认规格，商品不存在时返回 ErrProductNotFound
	CreateFallbackVariant(ctx context.Context, productID uint, color, size string, price decimal.Decimal, stock int) (*Variant, error)
	FindProductByID(ctx context.Context, id uint) (*Product, error)
	// FindVariantsByIDs 批量查询，缺失的 ID 不出现在结果中
	FindVariantsByIDs(ctx context.Context, ids []uint) (map[uint]*Variant, error)
}

// EventPublisher 事件发布者接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}

// CartCache 已填充规格的购物车快照缓存。
// 每个归属者带一个版本号：Invalidate 递增版本并删除快照，Set 只在版本仍为读库前取到的值时写入。
type CartCache interface {
	Get(ctx context.Context, owner Owner) (*Cart, bool, error)
	Version(ctx context.Context, owner Owner) (int64, error)
	Set(ctx context.Context, owner Owner, cart *Cart, version int64) (bool, error)
	Invalidate(ctx context.Context, owners ...Owner) error
}
