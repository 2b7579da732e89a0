// Package catalog 把商品目录应用服务适配为购物车的 VariantCatalog 端口
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/storefront/internal/cart/domain"
	catalogapp "github.com/wyfcoding/storefront/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/storefront/internal/catalog/domain"
)

type adapter struct {
	app *catalogapp.CatalogApplicationService
}

// NewVariantCatalog 创建商品目录适配器
func NewVariantCatalog(app *catalogapp.CatalogApplicationService) domain.VariantCatalog {
	return &adapter{app: app}
}

func (a *adapter) FindVariantByID(ctx context.Context, id uint) (*domain.Variant, error) {
	v, err := a.app.FindVariantByID(ctx, id)
	return toVariant(v), err
}

func (a *adapter) FindVariant(ctx context.Context, productID uint, color, size string) (*domain.Variant, error) {
	v, err := a.app.FindVariant(ctx, productID, color, size)
	return toVariant(v), err
}

func (a *adapter) FindDefaultVariant(ctx context.Context, productID uint) (*domain.Variant, error) {
	v, err := a.app.FindDefaultVariant(ctx, productID)
	return toVariant(v), err
}

func (a *adapter) CreateFallbackVariant(ctx context.Context, productID uint, color, size string, price decimal.Decimal, stock int) (*domain.Variant, error) {
	v, err := a.app.CreateFallbackVariant(ctx, productID, color, size, price, stock)
	if err != nil {
		return nil, translate(err)
	}
	return toVariant(v), nil
}

func (a *adapter) FindProductByID(ctx context.Context, id uint) (*domain.Product, error) {
	p, err := a.app.FindProductByID(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	return &domain.Product{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}, nil
}

func (a *adapter) FindVariantsByIDs(ctx context.Context, ids []uint) (map[uint]*domain.Variant, error) {
	found, err := a.app.FindVariantsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]*domain.Variant, len(found))
	for id, v := range found {
		out[id] = toVariant(v)
	}
	return out, nil
}

func toVariant(v *catalogdomain.Variant) *domain.Variant {
	if v == nil {
		return nil
	}
	out := &domain.Variant{
		ID:        v.ID,
		ProductID: v.ProductID,
		Color:     v.Color,
		Size:      v.Size,
		Price:     v.Price,
		Stock:     v.Stock,
	}
	if v.Product != nil {
		out.ProductName = v.Product.Name
	}
	return out
}

func translate(err error) error {
	switch {
	case errors.Is(err, catalogdomain.ErrProductNotFound):
		return domain.ErrProductNotFound
	case errors.Is(err, catalogdomain.ErrVariantNotFound):
		return domain.ErrVariantNotFound
	default:
		return err
	}
}
