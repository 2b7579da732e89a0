// Package domain 包含商品目录的领域模型
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	// FallbackColor 商品没有任何规格时自动生成的默认颜色
	FallbackColor = "Standard"
	// FallbackSize 商品没有任何规格时自动生成的默认尺码
	FallbackSize = "Standard"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidVariant  = errors.New("invalid variant")
)

// Product 商品实体
type Product struct {
	gorm.Model
	Name        string          `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Description string          `gorm:"column:description;type:text" json:"description"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(20,8);not null" json:"price"`
	Stock       int             `gorm:"column:stock;not null;default:0" json:"stock"`
	Category    string          `gorm:"column:category;type:varchar(100);index" json:"category"`
	Variants    []Variant       `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
}

func (Product) TableName() string { return "products" }

// Validate 校验商品基础字段
func (p *Product) Validate() error {
	if p.Name == "" {
		return errors.Join(ErrInvalidProduct, errors.New("name is required"))
	}
	if p.Price.IsNegative() {
		return errors.Join(ErrInvalidProduct, errors.New("price must not be negative"))
	}
	if p.Stock < 0 {
		return errors.Join(ErrInvalidProduct, errors.New("stock must not be negative"))
	}
	return nil
}

// Variant 商品规格（颜色 + 尺码），是购物车中实际可购买的单元
type Variant struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProductID uint            `gorm:"column:product_id;not null;uniqueIndex:uk_variant_product_color_size,priority:1" json:"product_id"`
	Color     string          `gorm:"column:color;type:varchar(64);not null;uniqueIndex:uk_variant_product_color_size,priority:2" json:"color"`
	Size      string          `gorm:"column:size;type:varchar(64);not null;uniqueIndex:uk_variant_product_color_size,priority:3" json:"size"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(20,8);not null" json:"price"`
	Stock     int             `gorm:"column:stock;not null;default:0" json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (Variant) TableName() string { return "product_variants" }

// Validate 校验规格字段
func (v *Variant) Validate() error {
	if v.ProductID == 0 {
		return errors.Join(ErrInvalidVariant, errors.New("product_id is required"))
	}
	if v.Color == "" || v.Size == "" {
		return errors.Join(ErrInvalidVariant, errors.New("color and size are required"))
	}
	if v.Price.IsNegative() || v.Stock < 0 {
		return errors.Join(ErrInvalidVariant, errors.New("price and stock must not be negative"))
	}
	return nil
}

// NewFallbackVariant 为没有任何规格的商品生成默认规格
func NewFallbackVariant(p *Product) *Variant {
	return &Variant{
		ProductID: p.ID,
		Color:     FallbackColor,
		Size:      FallbackSize,
		Price:     p.Price,
		Stock:     p.Stock,
	}
}
