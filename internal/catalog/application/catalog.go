package application

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/utils"
)

// CatalogApplicationService 商品目录服务门面，整合命令服务和查询服务
type CatalogApplicationService struct {
	commandService *CatalogCommandService
	queryService   *CatalogQueryService
}

// NewCatalogApplicationService 创建商品目录服务门面实例
func NewCatalogApplicationService(
	products domain.ProductRepository,
	variants domain.VariantRepository,
	publisher domain.EventPublisher,
) *CatalogApplicationService {
	return &CatalogApplicationService{
		commandService: NewCatalogCommandService(products, variants, publisher),
		queryService:   NewCatalogQueryService(products, variants),
	}
}

// CreateProduct 创建商品
func (s *CatalogApplicationService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (*domain.Product, error) {
	return s.commandService.CreateProduct(ctx, cmd)
}

// UpdateProduct 更新商品
func (s *CatalogApplicationService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (*domain.Product, error) {
	return s.commandService.UpdateProduct(ctx, cmd)
}

// AddVariant 新增规格
func (s *CatalogApplicationService) AddVariant(ctx context.Context, cmd AddVariantCommand) (*domain.Variant, error) {
	return s.commandService.AddVariant(ctx, cmd)
}

// CreateFallbackVariant 生成默认规格
func (s *CatalogApplicationService) CreateFallbackVariant(ctx context.Context, productID uint, color, size string, price decimal.Decimal, stock int) (*domain.Variant, error) {
	return s.commandService.CreateFallbackVariant(ctx, CreateFallbackVariantCommand{
		ProductID: productID,
		Color:     color,
		Size:      size,
		Price:     price,
		Stock:     stock,
	})
}

// GetProduct 获取商品
func (s *CatalogApplicationService) GetProduct(ctx context.Context, id uint) (*domain.Product, error) {
	return s.queryService.GetProduct(ctx, id)
}

// ListProducts 分页列出商品
func (s *CatalogApplicationService) ListProducts(ctx context.Context, category string, page, size int) ([]*domain.Product, *utils.Pagination, error) {
	return s.queryService.ListProducts(ctx, category, page, size)
}

// ListVariants 列出商品规格
func (s *CatalogApplicationService) ListVariants(ctx context.Context, productID uint) ([]*domain.Variant, error) {
	return s.queryService.ListVariants(ctx, productID)
}

// FindVariantByID 按 ID 查找规格
func (s *CatalogApplicationService) FindVariantByID(ctx context.Context, id uint) (*domain.Variant, error) {
	return s.queryService.FindVariantByID(ctx, id)
}

// FindVariantsByIDs 批量查找规格
func (s *CatalogApplicationService) FindVariantsByIDs(ctx context.Context, ids []uint) (map[uint]*domain.Variant, error) {
	return s.queryService.FindVariantsByIDs(ctx, ids)
}

// FindVariant 按颜色尺码查找规格
func (s *CatalogApplicationService) FindVariant(ctx context.Context, productID uint, color, size string) (*domain.Variant, error) {
	return s.queryService.FindVariant(ctx, productID, color, size)
}

// FindDefaultVariant 查找默认规格
func (s *CatalogApplicationService) FindDefaultVariant(ctx context.Context, productID uint) (*domain.Variant, error) {
	return s.queryService.FindDefaultVariant(ctx, productID)
}

// FindProductByID 按 ID 查找商品
func (s *CatalogApplicationService) FindProductByID(ctx context.Context, id uint) (*domain.Product, error) {
	return s.queryService.GetProduct(ctx, id)
}
