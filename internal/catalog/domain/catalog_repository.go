package domain

import "context"

// ProductRepository 商品仓储。未找到时返回 nil, nil
type ProductRepository interface {
	Save(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id uint) (*Product, error)
	List(ctx context.Context, category string, offset, limit int) ([]*Product, int64, error)
}

// VariantRepository 规格仓储。未找到时返回 nil, nil
type VariantRepository interface {
	Create(ctx context.Context, variant *Variant) error
	// FindOrCreate 按 (product_id, color, size) 查找，不存在则插入；并发插入时返回已存在的行
	FindOrCreate(ctx context.Context, variant *Variant) (*Variant, bool, error)
	GetByID(ctx context.Context, id uint) (*Variant, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*Variant, error)
	// Find 按商品查找规格，color/size 为空表示不限，多条时取 id 最小的一条
	Find(ctx context.Context, productID uint, color, size string) (*Variant, error)
	ListByProduct(ctx context.Context, productID uint) ([]*Variant, error)
}

// EventPublisher 事件发布者接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
