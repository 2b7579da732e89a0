package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cartRepository struct{ db *gorm.DB }

// NewCartRepository 创建购物车仓储
func NewCartRepository(gdb *gorm.DB) domain.CartRepository {
	return &cartRepository{db: gdb}
}

// ownerScope 把归属映射为查询条件，非法归属匹配不到任何行
func ownerScope(owner domain.Owner) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if owner.Validate() != nil {
			return tx.Where("1 = 0")
		}
		if id, ok := owner.UserID(); ok {
			return tx.Where("user_id = ?", id)
		}
		token, _ := owner.GuestToken()
		return tx.Where("guest_token = ?", token)
	}
}

func (r *cartRepository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunInTx(ctx, r.db, fn)
}

func (r *cartRepository) GetByOwner(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	var cart domain.Cart
	err := db.Conn(ctx, r.db).
		Scopes(ownerScope(owner)).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []*domain.CartItem{}
	}
	return &cart, nil
}

func (r *cartRepository) GetByOwnerForUpdate(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	conn := db.Conn(ctx, r.db)

	var cart domain.Cart
	err := conn.Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(ownerScope(owner)).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items := []*domain.CartItem{}
	err = conn.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ?", cart.ID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return &cart, nil
}

// Create 插入放在保存点中，唯一键冲突只回滚保存点，外层事务仍可继续
func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	err := db.RunInTx(ctx, r.db, func(ctx context.Context) error {
		return db.Conn(ctx, r.db).Omit(clause.Associations).Create(cart).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrCartAlreadyExists
	}
	return err
}

func (r *cartRepository) DeleteCart(ctx context.Context, cartID uint) error {
	return db.RunInTx(ctx, r.db, func(ctx context.Context) error {
		conn := db.Conn(ctx, r.db)
		if err := conn.Where("cart_id = ?", cartID).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		return conn.Delete(&domain.Cart{}, cartID).Error
	})
}

func (r *cartRepository) GetItem(ctx context.Context, cartID, itemID uint) (*domain.CartItem, error) {
	return r.firstItem(ctx, "cart_id = ? AND id = ?", cartID, itemID)
}

func (r *cartRepository) GetItemByVariant(ctx context.Context, cartID, variantID uint) (*domain.CartItem, error) {
	return r.firstItem(ctx, "cart_id = ? AND variant_id = ?", cartID, variantID)
}

func (r *cartRepository) firstItem(ctx context.Context, query string, args ...any) (*domain.CartItem, error) {
	var item domain.CartItem
	err := db.Conn(ctx, r.db).Where(query, args...).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) CreateItem(ctx context.Context, item *domain.CartItem) error {
	err := db.RunInTx(ctx, r.db, func(ctx context.Context) error {
		return db.Conn(ctx, r.db).Create(item).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrItemAlreadyExists
	}
	return err
}

func (r *cartRepository) IncrementItemQuantity(ctx context.Context, cartID, variantID uint, delta int) (bool, error) {
	res := db.Conn(ctx, r.db).Model(&domain.CartItem{}).
		Where("cart_id = ? AND variant_id = ?", cartID, variantID).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *cartRepository) SetItemQuantity(ctx context.Context, cartID, itemID uint, quantity int) error {
	return db.Conn(ctx, r.db).Model(&domain.CartItem{}).
		Where("cart_id = ? AND id = ?", cartID, itemID).
		Update("quantity", quantity).Error
}

func (r *cartRepository) DeleteItem(ctx context.Context, cartID, itemID uint) (bool, error) {
	res := db.Conn(ctx, r.db).Where("cart_id = ? AND id = ?", cartID, itemID).Delete(&domain.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID uint) (int64, error) {
	res := db.Conn(ctx, r.db).Where("cart_id = ?", cartID).Delete(&domain.CartItem{})
	return res.RowsAffected, res.Error
}
