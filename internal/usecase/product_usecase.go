package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	// 1ページの商品数（固定）
	ProductPageSize = 16
	// トップページのおすすめ件数
	FeaturedLimit = 8

	maxFilterNameLen  = 60
	maxProductNameLen = 100
)

// decimal(10,2) に入る最大値
var maxPrice = decimal.RequireFromString("99999999.99")

type ProductUsecase struct {
	products repo.ProductRepository
	tx       repo.TransactionManager
	clock    Clock
}

// DI
func NewProductUsecase(products repo.ProductRepository, tx repo.TransactionManager, clock Clock) *ProductUsecase {
	return &ProductUsecase{products: products, tx: tx, clock: clock}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Name        string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	CategoryIDs []int64
	SortingKey  string
	Page        int
}

type ProductPage struct {
	Items    []model.Product `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	NumPages int             `json:"num_pages"`
}

// ListProducts は絞り込み・並び替えして1ページ分返す。
// ページ番号は [1, NumPages] に丸める（範囲外でもエラーにしない）。
func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductPage, error) {
	f, err := buildFilter(in)
	if err != nil {
		return ProductPage{Items: []model.Product{}}, err
	}

	total, err := u.products.Count(ctx, f)
	if err != nil {
		return ProductPage{Items: []model.Product{}}, fmt.Errorf("count products: %w", err)
	}

	numPages := NumPages(total, ProductPageSize)
	page := ClampPage(in.Page, numPages)

	// 指定なしは新しい順。知らないキーは登録順
	sort := strings.TrimSpace(in.SortingKey)
	if sort == "" {
		sort = repo.SortLatest
	}

	items, err := u.products.List(ctx, repo.ProductListQuery{
		ProductFilter: f,
		Sort:          sort,
		Offset:        (page - 1) * ProductPageSize,
		Limit:         ProductPageSize,
	})
	if err != nil {
		return ProductPage{Items: []model.Product{}}, fmt.Errorf("list products: %w", err)
	}

	return ProductPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: ProductPageSize,
		NumPages: numPages,
	}, nil
}

// 0件でも1ページ
func NumPages(total int64, size int) int {
	if total <= 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}

func ClampPage(page, numPages int) int {
	if page < 1 {
		return 1
	}
	if page > numPages {
		return numPages
	}
	return page
}

func buildFilter(in ListProductsInput) (repo.ProductFilter, error) {
	name := strings.TrimSpace(in.Name)
	if utf8.RuneCountInString(name) > maxFilterNameLen {
		return repo.ProductFilter{}, fmt.Errorf("%w: name too long", ErrInvalidFilter)
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return repo.ProductFilter{}, fmt.Errorf("%w: min_price must be >= 0", ErrInvalidFilter)
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return repo.ProductFilter{}, fmt.Errorf("%w: max_price must be >= 0", ErrInvalidFilter)
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return repo.ProductFilter{}, fmt.Errorf("%w: min_price must be <= max_price", ErrInvalidFilter)
	}

	return repo.ProductFilter{
		Name:        name,
		MinPrice:    in.MinPrice,
		MaxPrice:    in.MaxPrice,
		CategoryIDs: in.CategoryIDs,
	}, nil
}

// おすすめ商品（新しい順）
func (u *ProductUsecase) ListFeatured(ctx context.Context) ([]model.Product, error) {
	items, err := u.products.ListFeatured(ctx, FeaturedLimit)
	if err != nil {
		return []model.Product{}, fmt.Errorf("list featured: %w", err)
	}
	return items, nil
}

func (u *ProductUsecase) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, ErrNotFound
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, ErrNotFound
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("find product: %w", err)
	}
	return p, nil
}

// 管理者の商品作成・更新の入力
type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	Image       *string
	Description *string
	Featured    bool
	CategoryIDs []int64
}

func (in ProductInput) validate() error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxProductNameLen {
		return fmt.Errorf("%w: name too long", ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must be >= 0", ErrInvalidInput)
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return fmt.Errorf("%w: price has more than 2 decimal places", ErrInvalidInput)
	}
	if in.Price.GreaterThan(maxPrice) {
		return fmt.Errorf("%w: price too large", ErrInvalidInput)
	}
	return nil
}

func (in ProductInput) toModel(id int64) model.Product {
	return model.Product{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		Image:       in.Image,
		Description: in.Description,
		Featured:    in.Featured,
	}
}

func (u *ProductUsecase) CreateProduct(ctx context.Context, adminUserID int64, in ProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := checkCategories(ctx, r, in.CategoryIDs); err != nil {
			return err
		}

		p, err := r.Products().Create(ctx, in.toModel(0), in.CategoryIDs)
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}

		if err := writeAudit(ctx, r, u.clock, adminUserID, model.AuditActionCreateProduct, model.AuditResourceProduct, p.ID, nil, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

func (u *ProductUsecase) UpdateProduct(ctx context.Context, adminUserID int64, productID int64, in ProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, ErrUnauthorized
	}
	if productID <= 0 {
		return model.Product{}, ErrNotFound
	}
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find product: %w", err)
		}

		if err := checkCategories(ctx, r, in.CategoryIDs); err != nil {
			return err
		}

		if err := r.Products().Update(ctx, in.toModel(productID), in.CategoryIDs); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("update product: %w", err)
		}

		after, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return fmt.Errorf("reload product: %w", err)
		}

		if err := writeAudit(ctx, r, u.clock, adminUserID, model.AuditActionUpdateProduct, model.AuditResourceProduct, productID, before, after); err != nil {
			return err
		}
		out = after
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

// 注文で使われた商品は消せない（ErrProductInUse）
func (u *ProductUsecase) DeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return ErrUnauthorized
	}
	if productID <= 0 {
		return ErrNotFound
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find product: %w", err)
		}

		err = r.Products().Delete(ctx, productID)
		switch {
		case errors.Is(err, repo.ErrInUse):
			return ErrProductInUse
		case errors.Is(err, repo.ErrNotFound):
			return ErrNotFound
		case err != nil:
			return fmt.Errorf("delete product: %w", err)
		}

		return writeAudit(ctx, r, u.clock, adminUserID, model.AuditActionDeleteProduct, model.AuditResourceProduct, productID, before, nil)
	})
}

func checkCategories(ctx context.Context, r repo.TxRepos, ids []int64) error {
	for _, id := range ids {
		if _, err := r.Categories().FindByID(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("%w: unknown category %d", ErrInvalidInput, id)
			}
			return fmt.Errorf("find category: %w", err)
		}
	}
	return nil
}

// 監査ログを書く。before/after は JSON にして保存（nil は空文字）
func writeAudit(
	ctx context.Context,
	r repo.TxRepos,
	clock Clock,
	actorID int64,
	action model.AuditAction,
	resource model.AuditResourceType,
	resourceID int64,
	before, after any,
) error {
	b, err := auditJSON(before)
	if err != nil {
		return err
	}
	a, err := auditJSON(after)
	if err != nil {
		return err
	}

	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		BeforeJSON:   b,
		AfterJSON:    a,
		CreatedAt:    clock.Now(),
	}); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

func auditJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("audit json: %w", err)
	}
	return string(raw), nil
}
