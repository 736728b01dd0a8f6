package notifier

import (
	"context"

	"storefront/internal/usecase"

	"go.uber.org/zap"
)

// SES未設定のときはログに出すだけ
type LogNotifier struct {
	log *zap.Logger
}

var _ usecase.OrderNotifier = (*LogNotifier)(nil)

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) OrderPlaced(ctx context.Context, userID int64, order usecase.OrderOutput) error {
	n.log.Info("order placed",
		zap.Int64("user_id", userID),
		zap.String("order_id", order.OrderID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return nil
}
