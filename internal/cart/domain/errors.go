package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest 请求参数不合法（缺少 variant/product 标识等）
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidQuantity 数量必须为正整数
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be a positive integer", ErrInvalidRequest)
	// ErrInvalidOwner 归属标识缺失或格式错误
	ErrInvalidOwner = fmt.Errorf("%w: invalid cart owner", ErrInvalidRequest)

	ErrVariantNotFound = errors.New("variant not found")
	ErrProductNotFound = errors.New("product not found")
	// ErrItemNotFound 行项目不存在，或不属于当前归属者的购物车
	ErrItemNotFound = errors.New("cart item not found")
	// ErrCartCreationFailure 无法为归属者创建购物车
	ErrCartCreationFailure = errors.New("cart creation failure")

	// ErrCartAlreadyExists 唯一键冲突：该归属者已有购物车，仅在仓储与应用层之间传递
	ErrCartAlreadyExists = errors.New("cart already exists")
	// ErrItemAlreadyExists 唯一键冲突：购物车中已有该规格的行项目
	ErrItemAlreadyExists = errors.New("cart item already exists")
)

// ValidateQuantity 校验数量
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}
