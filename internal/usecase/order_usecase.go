package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 注文確定後の通知（メールなど）。失敗しても注文は成立している
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, userID int64, order OrderOutput) error
}

type OrderUsecase struct {
	tx       repo.TransactionManager
	ids      OrderIDGenerator
	clock    Clock
	notifier OrderNotifier
	log      *zap.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	ids OrderIDGenerator,
	clock Clock,
	notifier OrderNotifier,
	log *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{tx: tx, ids: ids, clock: clock, notifier: notifier, log: log}
}

type OrderItemOutput struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  uint            `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderOutput struct {
	ID           int64             `json:"id"`
	OrderID      string            `json:"order_id"`
	UserID       int64             `json:"user_id"`
	Status       string            `json:"status"`
	Subtotal     decimal.Decimal   `json:"subtotal"`
	Tax          decimal.Decimal   `json:"tax"`
	ShippingCost decimal.Decimal   `json:"shipping_cost"`
	Total        decimal.Decimal   `json:"total"`
	CreatedAt    time.Time         `json:"created_at"`
	Items        []OrderItemOutput `json:"items"`
}

// PlaceOrder はカートの中身から注文を作り、カートを空にする。
// 途中で失敗したら全部ロールバック。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, ErrUnauthorized
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// カートをロック（同時の注文確定を直列にする）
		cart, err := r.Carts().FindByUserIDForUpdate(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrEmptyOrMissingCart
		}
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}

		lines, err := r.CartProducts().ListByCartID(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("list cart lines: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyOrMissingCart
		}

		view := ComputeCartView(lines)
		now := u.clock.Now()

		orderID, err := u.ids.NewOrderID(userID, now)
		if err != nil {
			return err
		}

		// 税・送料は今のところ0
		tax := decimal.Zero
		shipping := decimal.Zero
		order, err := r.Orders().Create(ctx, model.Order{
			OrderID:      orderID,
			UserID:       userID,
			Status:       model.OrderStatusPending,
			Subtotal:     view.Total,
			Tax:          tax,
			ShippingCost: shipping,
			Total:        view.Total.Add(tax).Add(shipping),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			return ErrDuplicateOrderID
		}
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		// スナップショット（商品名と単価はこの時点の値）
		items := make([]model.OrderItem, 0, len(lines))
		lineIDs := make([]int64, 0, len(lines))
		for _, l := range lines {
			items = append(items, model.OrderItem{
				ProductID:   l.ProductID,
				ProductName: l.Product.Name,
				Quantity:    l.Quantity,
				Price:       l.Product.Price,
			})
			lineIDs = append(lineIDs, l.ID)
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		// 読んだ明細だけ消す。件数が合わなければ他の注文が先に使った
		deleted, err := r.CartProducts().DeleteByIDs(ctx, cart.ID, lineIDs)
		if err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		if deleted != int64(len(lineIDs)) {
			return fmt.Errorf("clear cart: deleted %d of %d lines", deleted, len(lineIDs))
		}

		out = toOrderOutput(order, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, u.txError("place order", userID, err)
	}

	if u.notifier != nil {
		if nerr := u.notifier.OrderPlaced(ctx, userID, out); nerr != nil {
			u.log.Warn("order notification failed",
				zap.Int64("user_id", userID),
				zap.String("order_id", out.OrderID),
				zap.Error(nerr),
			)
		}
	}

	return out, nil
}

// CancelOrder は自分の注文をキャンセルする。削除はしない。
func (u *OrderUsecase) CancelOrder(ctx context.Context, userID int64, id int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, ErrUnauthorized
	}
	if id <= 0 {
		return OrderOutput{}, ErrNotFound
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		// 他人の注文は存在しない扱い
		if o.UserID != userID {
			return ErrNotFound
		}
		if !o.Status.CanTransitionTo(model.OrderStatusCancelled) {
			return ErrInvalidStatusTransition
		}

		if err := r.Orders().UpdateStatus(ctx, id, model.OrderStatusCancelled); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if err := writeStatusAudit(ctx, r, u.clock, userID, model.AuditActionCancelOrder, id, o.Status, model.OrderStatusCancelled); err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, id)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		o.Status = model.OrderStatusCancelled
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, u.txError("cancel order", userID, err)
	}
	return out, nil
}

// ListMyOrders は新しい順に最大50件。
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, ErrUnauthorized
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return fmt.Errorf("list order items: %w", err)
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID int64, id int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, ErrUnauthorized
	}
	if id <= 0 {
		return OrderOutput{}, ErrNotFound
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if o.UserID != userID {
			return ErrNotFound
		}

		items, err := r.OrderItems().ListByOrderID(ctx, id)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 業務エラーはそのまま返す。それ以外はログに残して ErrTransactionFailure
func (u *OrderUsecase) txError(op string, userID int64, err error) error {
	for _, known := range []error{
		ErrUnauthorized,
		ErrNotFound,
		ErrEmptyOrMissingCart,
		ErrDuplicateOrderID,
		ErrInvalidStatusTransition,
	} {
		if errors.Is(err, known) {
			return known
		}
	}

	u.log.Error(op+" failed", zap.Int64("user_id", userID), zap.Error(err))
	return ErrTransactionFailure
}

type statusJSON struct {
	Status model.OrderStatus `json:"status"`
}

func writeStatusAudit(
	ctx context.Context,
	r repo.TxRepos,
	clock Clock,
	actorID int64,
	action model.AuditAction,
	orderID int64,
	before, after model.OrderStatus,
) error {
	return writeAudit(ctx, r, clock, actorID, action, model.AuditResourceOrder, orderID,
		statusJSON{Status: before}, statusJSON{Status: after})
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Subtotal:  it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}

	return OrderOutput{
		ID:           o.ID,
		OrderID:      o.OrderID,
		UserID:       o.UserID,
		Status:       string(o.Status),
		Subtotal:     o.Subtotal,
		Tax:          o.Tax,
		ShippingCost: o.ShippingCost,
		Total:        o.Total,
		CreatedAt:    o.CreatedAt,
		Items:        outItems,
	}
}
