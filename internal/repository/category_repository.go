package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	Create(ctx context.Context, name string) (model.Category, error)
	Rename(ctx context.Context, id int64, name string) error
	// 商品との紐付けだけ外して削除（商品は残る）
	Delete(ctx context.Context, id int64) error
}
