package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("not found")

	// 一意制約違反
	ErrDuplicate = errors.New("duplicate")

	// 外部キーで参照されていて削除できない
	ErrInUse = errors.New("in use")
)

// 一覧の並び順キー
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortOldest    = "oldest"
	SortLatest    = "latest"
)

// 商品一覧の絞り込み条件。nil/空は条件なし。
type ProductFilter struct {
	Name        string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	CategoryIDs []int64
}

// 一覧検索
type ProductListQuery struct {
	ProductFilter
	Sort   string
	Offset int
	Limit  int
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	Count(ctx context.Context, f ProductFilter) (int64, error)
	List(ctx context.Context, q ProductListQuery) ([]model.Product, error)
	ListFeatured(ctx context.Context, limit int) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product, categoryIDs []int64) (model.Product, error)
	// カテゴリは丸ごと置き換える
	Update(ctx context.Context, p model.Product, categoryIDs []int64) error
	// 注文明細から参照されていれば ErrInUse
	Delete(ctx context.Context, id int64) error
}
