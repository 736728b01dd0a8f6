package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// カート明細。更新・削除は必ずcartIDで絞る。
type CartProductRepository interface {
	// Productをロードして返す
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartProduct, error)
	// 同じ商品が既にあれば ErrDuplicate
	Create(ctx context.Context, line model.CartProduct) (model.CartProduct, error)
	UpdateQuantity(ctx context.Context, cartID int64, lineID int64, qty uint) error
	Delete(ctx context.Context, cartID int64, lineID int64) error
	// 消せた件数を返す
	DeleteByIDs(ctx context.Context, cartID int64, lineIDs []int64) (int64, error)
}
