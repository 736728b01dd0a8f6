package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

const maxCategoryNameLen = 60

type CategoryUsecase struct {
	categories repo.CategoryRepository
	tx         repo.TransactionManager
	clock      Clock
}

func NewCategoryUsecase(categories repo.CategoryRepository, tx repo.TransactionManager, clock Clock) *CategoryUsecase {
	return &CategoryUsecase{categories: categories, tx: tx, clock: clock}
}

func (u *CategoryUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	cats, err := u.categories.List(ctx)
	if err != nil {
		return []model.Category{}, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (u *CategoryUsecase) CreateCategory(ctx context.Context, adminUserID int64, name string) (model.Category, error) {
	if adminUserID <= 0 {
		return model.Category{}, ErrUnauthorized
	}
	name, err := categoryName(name)
	if err != nil {
		return model.Category{}, err
	}

	var out model.Category
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Categories().Create(ctx, name)
		if err != nil {
			return fmt.Errorf("create category: %w", err)
		}
		out = c
		return writeAudit(ctx, r, u.clock, adminUserID, model.AuditActionCreateCategory, model.AuditResourceCategory, c.ID, nil, c)
	})
	if err != nil {
		return model.Category{}, err
	}
	return out, nil
}

func (u *CategoryUsecase) RenameCategory(ctx context.Context, adminUserID int64, id int64, name string) (model.Category, error) {
	if adminUserID <= 0 {
		return model.Category{}, ErrUnauthorized
	}
	name, err := categoryName(name)
	if err != nil {
		return model.Category{}, err
	}

	out := model.Category{ID: id, Name: name}
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Categories().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find category: %w", err)
		}

		if err := r.Categories().Rename(ctx, id, name); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("rename category: %w", err)
		}
		return writeAudit(ctx, r, u.clock, adminUserID, model.AuditActionRenameCategory, model.AuditResourceCategory, id, before, out)
	})
	if err != nil {
		return model.Category{}, err
	}
	return out, nil
}

// 商品は残り、紐付けだけ外れる
func (u *CategoryUsecase) DeleteCategory(ctx context.Context, adminUserID int64, id int64) error {
	if adminUserID <= 0 {
		return ErrUnauthorized
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Categories().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find category: %w", err)
		}

		if err := r.Categories().Delete(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("delete category: %w", err)
		}
		return writeAudit(ctx, r, u.clock, adminUserID, model.AuditActionDeleteCategory, model.AuditResourceCategory, id, before, nil)
	})
}

func categoryName(s string) (string, error) {
	name := strings.TrimSpace(s)
	if name == "" {
		return "", fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxCategoryNameLen {
		return "", fmt.Errorf("%w: name too long", ErrInvalidInput)
	}
	return name, nil
}
