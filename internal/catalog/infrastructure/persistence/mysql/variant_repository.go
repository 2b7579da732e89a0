package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type variantRepository struct{ db *gorm.DB }

// NewVariantRepository 创建规格仓储
func NewVariantRepository(gdb *gorm.DB) domain.VariantRepository {
	return &variantRepository{db: gdb}
}

func (r *variantRepository) Create(ctx context.Context, variant *domain.Variant) error {
	return db.Conn(ctx, r.db).Omit("Product").Create(variant).Error
}

// FindOrCreate 插入放在保存点中执行，唯一键冲突只回滚保存点，随后读取已存在的行
func (r *variantRepository) FindOrCreate(ctx context.Context, variant *domain.Variant) (*domain.Variant, bool, error) {
	existing, err := r.findExact(ctx, variant.ProductID, variant.Color, variant.Size, false)
	if err != nil || existing != nil {
		return existing, false, err
	}

	err = db.RunInTx(ctx, r.db, func(ctx context.Context) error {
		return db.Conn(ctx, r.db).Omit("Product").Create(variant).Error
	})
	if err == nil {
		return variant, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, err
	}

	// 锁定读取，外层事务的快照看不到并发事务刚提交的行
	existing, err = r.findExact(ctx, variant.ProductID, variant.Color, variant.Size, true)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, domain.ErrVariantNotFound
	}
	return existing, false, nil
}

func (r *variantRepository) findExact(ctx context.Context, productID uint, color, size string, locking bool) (*domain.Variant, error) {
	q := db.Conn(ctx, r.db)
	if locking {
		q = q.Clauses(clause.Locking{Strength: "SHARE"})
	}
	var v domain.Variant
	err := q.Where("product_id = ? AND color = ? AND size = ?", productID, color, size).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *variantRepository) GetByID(ctx context.Context, id uint) (*domain.Variant, error) {
	var v domain.Variant
	err := db.Conn(ctx, r.db).Preload("Product").First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *variantRepository) GetByIDs(ctx context.Context, ids []uint) ([]*domain.Variant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var variants []*domain.Variant
	err := db.Conn(ctx, r.db).Preload("Product").Where("id IN ?", ids).Order("id").Find(&variants).Error
	return variants, err
}

func (r *variantRepository) Find(ctx context.Context, productID uint, color, size string) (*domain.Variant, error) {
	q := db.Conn(ctx, r.db).Preload("Product").Where("product_id = ?", productID)
	if color != "" {
		q = q.Where("color = ?", color)
	}
	if size != "" {
		q = q.Where("size = ?", size)
	}

	var v domain.Variant
	err := q.First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *variantRepository) ListByProduct(ctx context.Context, productID uint) ([]*domain.Variant, error) {
	var variants []*domain.Variant
	err := db.Conn(ctx, r.db).Where("product_id = ?", productID).Order("id").Find(&variants).Error
	return variants, err
}
