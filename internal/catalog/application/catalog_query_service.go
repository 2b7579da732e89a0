package application

import (
	"context"

	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/utils"
)

// CatalogQueryService 商品目录查询服务
type CatalogQueryService struct {
	products domain.ProductRepository
	variants domain.VariantRepository
}

// NewCatalogQueryService 创建商品目录查询服务实例
func NewCatalogQueryService(
	products domain.ProductRepository,
	variants domain.VariantRepository,
) *CatalogQueryService {
	return &CatalogQueryService{
		products: products,
		variants: variants,
	}
}

// GetProduct 根据ID获取商品信息，不存在时返回 nil
func (s *CatalogQueryService) GetProduct(ctx context.Context, id uint) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// ListProducts 分页列出商品
func (s *CatalogQueryService) ListProducts(ctx context.Context, category string, page, size int) ([]*domain.Product, *utils.Pagination, error) {
	p := utils.NewPagination(page, size, 0)
	products, total, err := s.products.List(ctx, category, p.Offset(), p.Limit())
	if err != nil {
		return nil, nil, err
	}
	return products, utils.NewPagination(p.Page, p.PageSize, total), nil
}

// ListVariants 列出商品的全部规格
func (s *CatalogQueryService) ListVariants(ctx context.Context, productID uint) ([]*domain.Variant, error) {
	return s.variants.ListByProduct(ctx, productID)
}

// FindVariantByID 根据ID查找规格
func (s *CatalogQueryService) FindVariantByID(ctx context.Context, id uint) (*domain.Variant, error) {
	return s.variants.GetByID(ctx, id)
}

// FindVariantsByIDs 批量查找规格，结果按 ID 索引，缺失的 ID 不出现在结果中
func (s *CatalogQueryService) FindVariantsByIDs(ctx context.Context, ids []uint) (map[uint]*domain.Variant, error) {
	variants, err := s.variants.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]*domain.Variant, len(variants))
	for _, v := range variants {
		out[v.ID] = v
	}
	return out, nil
}

// FindVariant 按颜色、尺码查找规格，空值表示不限
func (s *CatalogQueryService) FindVariant(ctx context.Context, productID uint, color, size string) (*domain.Variant, error) {
	return s.variants.Find(ctx, productID, color, size)
}

// FindDefaultVariant 返回商品 id 最小的规格
func (s *CatalogQueryService) FindDefaultVariant(ctx context.Context, productID uint) (*domain.Variant, error) {
	return s.variants.Find(ctx, productID, "", "")
}
