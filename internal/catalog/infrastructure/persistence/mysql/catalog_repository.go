package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/db"
	"gorm.io/gorm"
)

type productRepository struct{ db *gorm.DB }

// NewProductRepository 创建商品仓储
func NewProductRepository(gdb *gorm.DB) domain.ProductRepository {
	return &productRepository{db: gdb}
}

func (r *productRepository) Save(ctx context.Context, product *domain.Product) error {
	return db.Conn(ctx, r.db).Omit("Variants").Save(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*domain.Product, error) {
	var p domain.Product
	err := db.Conn(ctx, r.db).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) List(ctx context.Context, category string, offset, limit int) ([]*domain.Product, int64, error) {
	var products []*domain.Product
	var total int64

	q := db.Conn(ctx, r.db).Model(&domain.Product{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Variants", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id")
	}).Order("id").Offset(offset).Limit(limit).Find(&products).Error
	return products, total, err
}
