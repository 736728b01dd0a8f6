package usecase

import (
	"context"
	"fmt"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// 管理画面の監査ログ閲覧
type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

type AuditLogPage struct {
	Items  []model.AuditLog `json:"items"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func (u *AuditLogUsecase) List(ctx context.Context, f repo.AuditLogFilter) (AuditLogPage, error) {
	if f.Limit < 0 || f.Limit > 200 {
		return AuditLogPage{Items: []model.AuditLog{}}, fmt.Errorf("%w: invalid limit", ErrInvalidInput)
	}
	if f.Offset < 0 {
		return AuditLogPage{Items: []model.AuditLog{}}, fmt.Errorf("%w: invalid offset", ErrInvalidInput)
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedFrom.After(*f.CreatedTo) {
		return AuditLogPage{Items: []model.AuditLog{}}, fmt.Errorf("%w: from must be before to", ErrInvalidInput)
	}
	if f.Limit == 0 {
		f.Limit = 50
	}

	logs, total, err := u.logs.List(ctx, f)
	if err != nil {
		return AuditLogPage{Items: []model.AuditLog{}}, fmt.Errorf("list audit logs: %w", err)
	}
	return AuditLogPage{Items: logs, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}
