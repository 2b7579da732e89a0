// Package domain 包含购物车的领域模型：归属、行项目去重与游客购物车合并
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxGuestTokenLength 游客令牌最大长度，与 guest_token 列宽一致
	MaxGuestTokenLength = 64

	// FallbackColor 商品没有规格时默认规格的颜色
	FallbackColor = "Standard"
	// FallbackSize 商品没有规格时默认规格的尺码
	FallbackSize = "Standard"
)

// Cart 购物车实体。user_id 与 guest_token 有且仅有一个非空
type Cart struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	UserID     *uint64     `gorm:"column:user_id;uniqueIndex:uk_carts_user_id" json:"user_id,omitempty"`
	GuestToken *string     `gorm:"column:guest_token;type:varchar(64);uniqueIndex:uk_carts_guest_token" json:"guest_token,omitempty"`
	Items      []*CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (Cart) TableName() string { return "carts" }

// NewCart 为归属者创建空购物车
func NewCart(owner Owner) *Cart {
	c := &Cart{Items: []*CartItem{}}
	if id, ok := owner.UserID(); ok {
		c.UserID = &id
	}
	if token, ok := owner.GuestToken(); ok {
		c.GuestToken = &token
	}
	return c
}

// Owner 返回购物车归属
func (c *Cart) Owner() Owner {
	if c.UserID != nil {
		return UserOwner(*c.UserID)
	}
	if c.GuestToken != nil {
		return GuestOwner(*c.GuestToken)
	}
	return Owner{}
}

// FindItem 按 ID 查找行项目
func (c *Cart) FindItem(itemID uint) *CartItem {
	for _, item := range c.Items {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}

// FindItemByVariant 按规格查找行项目
func (c *Cart) FindItemByVariant(variantID uint) *CartItem {
	for _, item := range c.Items {
		if item.VariantID == variantID {
			return item
		}
	}
	return nil
}

// CartItem 购物车行项目，同一购物车内每个规格至多一行
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"column:cart_id;not null;uniqueIndex:uk_cart_items_cart_variant,priority:1" json:"cart_id"`
	VariantID uint      `gorm:"column:variant_id;not null;uniqueIndex:uk_cart_items_cart_variant,priority:2" json:"variant_id"`
	ProductID uint      `gorm:"column:product_id;not null;index" json:"product_id"`
	Quantity  int       `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Variant 从商品目录读取，不落库
	Variant *Variant `gorm:"-" json:"variant,omitempty"`
}

func (CartItem) TableName() string { return "cart_items" }

// Key 合并键。规格可解析时以目录中的商品归属为准
func (i *CartItem) Key() LineKey {
	if i.Variant != nil {
		return LineKey{ProductID: i.Variant.ProductID, VariantID: i.VariantID}
	}
	return LineKey{ProductID: i.ProductID, VariantID: i.VariantID}
}

// Subtotal 行小计，规格缺失时为零
func (i *CartItem) Subtotal() decimal.Decimal {
	if i.Variant == nil {
		return decimal.Zero
	}
	return i.Variant.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Variant 购物车视角下的商品规格
type Variant struct {
	ID          uint            `json:"id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Color       string          `json:"color"`
	Size        string          `json:"size"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// Product 购物车视角下的商品，用于生成默认规格
type Product struct {
	ID    uint
	Name  string
	Price decimal.Decimal
	Stock int
}

// LineKey 合并时识别同一行的键
type LineKey struct {
	ProductID uint
	VariantID uint
}

// MergeResult 合并计划：需要更新数量的已有行、需要新建的行、被跳过的游客行
type MergeResult struct {
	Updated []*CartItem
	Created []*CartItem
	Skipped []*CartItem
	// Merged 累加到已有行（含本轮新建行）上的游客行数
	Merged int
}

// MergeLines 把游客购物车的行并入当前购物车。
// 同键的行累加数量；新建的行立即登记，同一轮中后续同键游客行累加到它上面而不是再建一行。
// 规格无法解析或数量非正的游客行被跳过。只修改内存中的购物车，持久化由调用方完成。
func (c *Cart) MergeLines(lines []*CartItem) MergeResult {
	index := make(map[LineKey]*CartItem, len(c.Items)+len(lines))
	for _, item := range c.Items {
		index[item.Key()] = item
	}

	var result MergeResult
	updated := make(map[*CartItem]bool)
	for _, line := range lines {
		if line.Variant == nil || line.Quantity < 1 {
			result.Skipped = append(result.Skipped, line)
			continue
		}

		key := line.Key()
		if existing, ok := index[key]; ok {
			existing.Quantity += line.Quantity
			result.Merged++
			if existing.ID != 0 && !updated[existing] {
				updated[existing] = true
				result.Updated = append(result.Updated, existing)
			}
			continue
		}

		created := &CartItem{
			CartID:    c.ID,
			VariantID: line.VariantID,
			ProductID: key.ProductID,
			Quantity:  line.Quantity,
			Variant:   line.Variant,
		}
		c.Items = append(c.Items, created)
		index[key] = created
		result.Created = append(result.Created, created)
	}
	return result
}

// Summary 购物车汇总
type Summary struct {
	CartID        uint            `json:"cart_id"`
	ItemCount     int             `json:"item_count"`
	TotalQuantity int             `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// Summary 计算行数、总件数与总金额
func (c *Cart) Summary() Summary {
	s := Summary{CartID: c.ID, ItemCount: len(c.Items), TotalAmount: decimal.Zero}
	for _, item := range c.Items {
		s.TotalQuantity += item.Quantity
		s.TotalAmount = s.TotalAmount.Add(item.Subtotal())
	}
	return s
}
