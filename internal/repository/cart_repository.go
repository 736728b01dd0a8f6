package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartRepository interface {
	// 無ければ作る。同時に呼ばれても1ユーザー1カート。
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// 注文確定用。トランザクション内で行ロックを取る。
	FindByUserIDForUpdate(ctx context.Context, userID int64) (model.Cart, error)
}
