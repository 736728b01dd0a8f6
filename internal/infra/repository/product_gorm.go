package repository

import (
	"context"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

var _ repo.ProductRepository = (*ProductGormRepository)(nil)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// 絞り込み条件を組み立てる。件数と一覧の両方で使う。
func (r *ProductGormRepository) filtered(ctx context.Context, f repo.ProductFilter) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&model.Product{})

	// 商品名の部分一致（大文字小文字を区別しない）
	if name := strings.TrimSpace(f.Name); name != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(name)) + "%"
		tx = tx.Where(`LOWER(name) LIKE ? ESCAPE '\'`, like)
	}

	//価格帯（両端を含む）
	if f.MinPrice != nil {
		tx = tx.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		tx = tx.Where("price <= ?", *f.MaxPrice)
	}

	// どれか1つのカテゴリに属していればよい。サブクエリなので重複行は出ない
	if len(f.CategoryIDs) > 0 {
		tx = tx.Where("id IN (SELECT product_id FROM product_categories WHERE category_id IN ?)", f.CategoryIDs)
	}

	return tx
}

func (r *ProductGormRepository) Count(ctx context.Context, f repo.ProductFilter) (int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// 検索/価格帯/カテゴリ/ソート/ページング付きで返す。
func (r *ProductGormRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	var products []model.Product

	tx := r.filtered(ctx, q.ProductFilter)

	//sort。同順位はidで固定
	switch q.Sort {
	case repo.SortPriceAsc:
		tx = tx.Order("price asc").Order("id asc")
	case repo.SortPriceDesc:
		tx = tx.Order("price desc").Order("id asc")
	case repo.SortOldest:
		tx = tx.Order("created_at asc").Order("id asc")
	case repo.SortLatest:
		tx = tx.Order("created_at desc").Order("id desc")
	default:
		// 不明なキーは登録順
		tx = tx.Order("id asc")
	}

	if err := tx.Preload("Categories").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&products).Error; err != nil {
		return []model.Product{}, err
	}

	return products, nil
}

// おすすめ商品の新しい順
func (r *ProductGormRepository) ListFeatured(ctx context.Context, limit int) ([]model.Product, error) {
	var products []model.Product

	if err := r.db.WithContext(ctx).
		Preload("Categories").
		Where("featured = ?", true).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&products).Error; err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Preload("Categories").First(&p, id).Error
	if err != nil {
		return model.Product{}, translateError(err)
	}
	return p, nil
}

// 商品の作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product, categoryIDs []int64) (model.Product, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cats, err := findCategories(tx, categoryIDs)
		if err != nil {
			return err
		}

		p.Categories = nil
		if err := tx.Omit("Categories").Create(&p).Error; err != nil {
			return translateError(err)
		}

		if len(cats) > 0 {
			if err := tx.Model(&p).Association("Categories").Append(&cats); err != nil {
				return translateError(err)
			}
		}
		p.Categories = cats
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 商品の更新
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product, categoryIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cats, err := findCategories(tx, categoryIDs)
		if err != nil {
			return err
		}

		res := tx.Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
			"name":        p.Name,
			"price":       p.Price,
			"image":       p.Image,
			"featured":    p.Featured,
			"description": p.Description,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		//カテゴリは丸ごと置き換え
		assoc := tx.Model(&model.Product{ID: p.ID}).Association("Categories")
		if len(cats) == 0 {
			return assoc.Clear()
		}
		return assoc.Replace(&cats)
	})
}

// 商品削除（物理削除）。注文明細がある商品は ErrInUse
func (r *ProductGormRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Product{ID: id}).Association("Categories").Clear(); err != nil {
			return err
		}

		res := tx.Delete(&model.Product{}, id)
		if res.Error != nil {
			return translateError(res.Error)
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}

// 指定IDのカテゴリを全部取得。1つでも無ければ ErrNotFound
func findCategories(tx *gorm.DB, ids []int64) ([]model.Category, error) {
	if len(ids) == 0 {
		return []model.Category{}, nil
	}

	uniq := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		uniq[id] = struct{}{}
	}

	var cats []model.Category
	if err := tx.Where("id IN ?", ids).Order("id asc").Find(&cats).Error; err != nil {
		return nil, err
	}
	if len(cats) != len(uniq) {
		return nil, repo.ErrNotFound
	}
	return cats, nil
}
