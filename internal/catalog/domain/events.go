package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicProductCreated      = "product.created"
	TopicProductUpdated      = "product.updated"
	TopicProductStockChanged = "product.stock.changed"
	TopicVariantCreated      = "variant.created"
)

// ProductCreatedEvent 商品创建事件
type ProductCreatedEvent struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Category  string          `json:"category"`
	Timestamp time.Time       `json:"timestamp"`
}

// ProductUpdatedEvent 商品更新事件
type ProductUpdatedEvent struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Category  string          `json:"category"`
	Timestamp time.Time       `json:"timestamp"`
}

// ProductStockChangedEvent 商品库存变更事件
type ProductStockChangedEvent struct {
	ProductID uint      `json:"product_id"`
	OldStock  int       `json:"old_stock"`
	NewStock  int       `json:"new_stock"`
	Timestamp time.Time `json:"timestamp"`
}

// VariantCreatedEvent 规格创建事件
type VariantCreatedEvent struct {
	VariantID uint            `json:"variant_id"`
	ProductID uint            `json:"product_id"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Timestamp time.Time       `json:"timestamp"`
}
