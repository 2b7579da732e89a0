package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/internal/catalog/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// CreateProductCommand 创建商品命令
type CreateProductCommand struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
}

// UpdateProductCommand 更新商品命令
type UpdateProductCommand struct {
	ID          uint
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
}

// AddVariantCommand 新增规格命令
type AddVariantCommand struct {
	ProductID uint
	Color     string
	Size      string
	Price     decimal.Decimal
	Stock     int
}

// CreateFallbackVariantCommand 生成默认规格命令，Color/Size 为空时使用 Standard
type CreateFallbackVariantCommand struct {
	ProductID uint
	Color     string
	Size      string
	Price     decimal.Decimal
	Stock     int
}

// CatalogCommandService 商品目录命令服务
type CatalogCommandService struct {
	products  domain.ProductRepository
	variants  domain.VariantRepository
	publisher domain.EventPublisher
}

// NewCatalogCommandService 创建商品目录命令服务实例
func NewCatalogCommandService(
	products domain.ProductRepository,
	variants domain.VariantRepository,
	publisher domain.EventPublisher,
) *CatalogCommandService {
	return &CatalogCommandService{
		products:  products,
		variants:  variants,
		publisher: publisher,
	}
}

// CreateProduct 处理创建商品
func (s *CatalogCommandService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (*domain.Product, error) {
	product := &domain.Product{
		Name:        cmd.Name,
		Description: cmd.Description,
		Price:       cmd.Price,
		Stock:       cmd.Stock,
		Category:    cmd.Category,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.TopicProductCreated, product.ID, domain.ProductCreatedEvent{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Stock:     product.Stock,
		Category:  product.Category,
		Timestamp: time.Now(),
	})
	return product, nil
}

// UpdateProduct 处理更新商品
func (s *CatalogCommandService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	oldStock := product.Stock
	product.Name = cmd.Name
	product.Description = cmd.Description
	product.Price = cmd.Price
	product.Stock = cmd.Stock
	product.Category = cmd.Category
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.TopicProductUpdated, product.ID, domain.ProductUpdatedEvent{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Stock:     product.Stock,
		Category:  product.Category,
		Timestamp: time.Now(),
	})

	// 库存变化单独发布
	if oldStock != product.Stock {
		s.publish(ctx, domain.TopicProductStockChanged, product.ID, domain.ProductStockChangedEvent{
			ProductID: product.ID,
			OldStock:  oldStock,
			NewStock:  product.Stock,
			Timestamp: time.Now(),
		})
	}
	return product, nil
}

// AddVariant 处理新增规格
func (s *CatalogCommandService) AddVariant(ctx context.Context, cmd AddVariantCommand) (*domain.Variant, error) {
	product, err := s.products.GetByID(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	variant := &domain.Variant{
		ProductID: product.ID,
		Color:     cmd.Color,
		Size:      cmd.Size,
		Price:     cmd.Price,
		Stock:     cmd.Stock,
	}
	if err := variant.Validate(); err != nil {
		return nil, err
	}
	if err := s.variants.Create(ctx, variant); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.TopicVariantCreated, product.ID, domain.VariantCreatedEvent{
		VariantID: variant.ID,
		ProductID: variant.ProductID,
		Color:     variant.Color,
		Size:      variant.Size,
		Price:     variant.Price,
		Stock:     variant.Stock,
		Timestamp: time.Now(),
	})
	return variant, nil
}

// CreateFallbackVariant 为没有规格的商品生成默认规格。
// 按 (product_id, color, size) 幂等：同一商品重复或并发调用得到同一条规格。
// 调用方通常处于外层事务中，因此这里不发布事件。
func (s *CatalogCommandService) CreateFallbackVariant(ctx context.Context, cmd CreateFallbackVariantCommand) (*domain.Variant, error) {
	product, err := s.products.GetByID(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	variant := domain.NewFallbackVariant(product)
	if cmd.Color != "" {
		variant.Color = cmd.Color
	}
	if cmd.Size != "" {
		variant.Size = cmd.Size
	}
	variant.Price = cmd.Price
	variant.Stock = cmd.Stock
	if err := variant.Validate(); err != nil {
		return nil, err
	}

	result, created, err := s.variants.FindOrCreate(ctx, variant)
	if err != nil {
		return nil, fmt.Errorf("create fallback variant for product %d: %w", cmd.ProductID, err)
	}
	if created {
		logger.Info(ctx, "fallback variant created",
			"product_id", result.ProductID,
			"variant_id", result.ID,
			"color", result.Color,
			"size", result.Size,
		)
	}
	result.Product = product
	return result, nil
}

func (s *CatalogCommandService) publish(ctx context.Context, topic string, productID uint, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, fmt.Sprint(productID), event); err != nil {
		logger.Warn(ctx, "failed to publish catalog event", "topic", topic, "product_id", productID, "error", err)
	}
}
