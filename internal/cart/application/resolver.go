package application

import (
	"context"
	"fmt"

	"github.com/wyfcoding/storefront/internal/cart/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// ItemSelector 定位规格：显式 VariantID，或 ProductID 加可选的颜色尺码
type ItemSelector struct {
	VariantID uint
	ProductID uint
	Color     string
	Size      string
}

// Validate 至少需要 VariantID 或 ProductID
func (s ItemSelector) Validate() error {
	if s.VariantID == 0 && s.ProductID == 0 {
		return fmt.Errorf("%w: variant_id or product_id is required", domain.ErrInvalidRequest)
	}
	return nil
}

// variantResolver 把选择器解析为具体规格
type variantResolver struct {
	catalog domain.VariantCatalog
}

// resolve 解析顺序：显式规格 ID；指定了颜色或尺码时按条件查找；否则取默认规格。
// allowFallback 为 true 且商品没有任何规格时生成 Standard/Standard 默认规格。
func (r *variantResolver) resolve(ctx context.Context, sel ItemSelector, allowFallback bool) (*domain.Variant, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	if sel.VariantID != 0 {
		v, err := r.catalog.FindVariantByID(ctx, sel.VariantID)
		if err != nil {
			return nil, err
		}
		if v == nil || (sel.ProductID != 0 && v.ProductID != sel.ProductID) {
			logger.Debug(ctx, "variant resolution failed", "variant_id", sel.VariantID, "product_id", sel.ProductID)
			return nil, fmt.Errorf("%w: id %d", domain.ErrVariantNotFound, sel.VariantID)
		}
		return v, nil
	}

	if sel.Color != "" || sel.Size != "" {
		v, err := r.catalog.FindVariant(ctx, sel.ProductID, sel.Color, sel.Size)
		if err != nil {
			return nil, err
		}
		if v == nil {
			logger.Debug(ctx, "no variant matches selector",
				"product_id", sel.ProductID, "color", sel.Color, "size", sel.Size)
			return nil, fmt.Errorf("%w: product %d color %q size %q", domain.ErrVariantNotFound, sel.ProductID, sel.Color, sel.Size)
		}
		return v, nil
	}

	v, err := r.catalog.FindDefaultVariant(ctx, sel.ProductID)
	if err != nil {
		return nil, err
	}
	if v != nil {
		logger.Debug(ctx, "resolved default variant", "product_id", sel.ProductID, "variant_id", v.ID)
		return v, nil
	}
	if !allowFallback {
		return nil, fmt.Errorf("%w: product %d has no variants", domain.ErrVariantNotFound, sel.ProductID)
	}

	product, err := r.catalog.FindProductByID(ctx, sel.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: id %d", domain.ErrProductNotFound, sel.ProductID)
	}

	v, err = r.catalog.CreateFallbackVariant(ctx, product.ID, domain.FallbackColor, domain.FallbackSize, product.Price, product.Stock)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "using fallback variant", "product_id", product.ID, "variant_id", v.ID)
	return v, nil
}
