package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type AdminOrderUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewAdminOrderUsecase(tx repo.TransactionManager, clock Clock) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, clock: clock}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

type AdminOrderPage struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderPage, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return AdminOrderPage{Items: []OrderOutput{}}, fmt.Errorf("%w: invalid page", ErrInvalidInput)
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminOrderPage{Items: []OrderOutput{}}, fmt.Errorf("%w: invalid limit", ErrInvalidInput)
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return AdminOrderPage{Items: []OrderOutput{}}, fmt.Errorf("%w: invalid status", ErrInvalidInput)
	}

	page := AdminOrderPage{Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}

		page.Total = total
		page.Items = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return fmt.Errorf("list order items: %w", err)
			}
			page.Items = append(page.Items, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return AdminOrderPage{Items: []OrderOutput{}}, err
	}
	return page, nil
}

// ステータス更新。遷移表に無い変更は ErrInvalidStatusTransition
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) error {
	if actorAdminUserID <= 0 {
		return ErrUnauthorized
	}
	if orderID <= 0 {
		return fmt.Errorf("%w: invalid id", ErrInvalidInput)
	}

	newStatus := model.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !newStatus.Valid() {
		return fmt.Errorf("%w: invalid status", ErrInvalidInput)
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			return nil
		}
		if !o.Status.CanTransitionTo(newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, newStatus)
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("update order status: %w", err)
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		return writeStatusAudit(ctx, r, u.clock, actorAdminUserID, model.AuditActionUpdateOrderStatus, orderID, o.Status, newStatus)
	})
}

// 期間パラメータ。空なら指定なし
func ParseDateTimeRFC3339(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid datetime", ErrInvalidInput)
	}
	return &t, nil
}
