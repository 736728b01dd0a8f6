package notifier

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/config"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// ses.Client のうち使う部分だけ（テストで差し替える）
type EmailSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// 注文確定メールを SES で送る
type SESNotifier struct {
	client EmailSender
	users  repository.UserRepository
	sender string
	log    *zap.Logger
}

var _ usecase.OrderNotifier = (*SESNotifier)(nil)

func NewSESNotifier(client EmailSender, users repository.UserRepository, sender string, log *zap.Logger) *SESNotifier {
	return &SESNotifier{client: client, users: users, sender: sender, log: log}
}

// NewSESClient は設定から SES クライアントを作る。キーが無ければデフォルトの認証情報
func NewSESClient(ctx context.Context, cfg config.Config) (*ses.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SESRegion),
	}
	if cfg.SESAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.SESAccessKeyID, cfg.SESSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return ses.NewFromConfig(awsCfg), nil
}

func (n *SESNotifier) OrderPlaced(ctx context.Context, userID int64, order usecase.OrderOutput) error {
	user, err := n.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find recipient: %w", err)
	}
	if user.Email == "" {
		return fmt.Errorf("recipient email address is empty")
	}

	subject, body := orderPlacedMessage(order)

	_, err = n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{user.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send order email: %w", err)
	}

	n.log.Info("order email sent", zap.String("order_id", order.OrderID), zap.Int64("user_id", userID))
	return nil
}

func orderPlacedMessage(o usecase.OrderOutput) (string, string) {
	subject := fmt.Sprintf("ご注文ありがとうございます（注文番号 %s）", o.OrderID)

	var b strings.Builder
	fmt.Fprintf(&b, "注文番号: %s\n\n", o.OrderID)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "%s x %d  %s\n", it.Name, it.Quantity, it.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\n小計: %s\n", o.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "税: %s\n", o.Tax.StringFixed(2))
	fmt.Fprintf(&b, "送料: %s\n", o.ShippingCost.StringFixed(2))
	fmt.Fprintf(&b, "合計: %s\n", o.Total.StringFixed(2))
	return subject, b.String()
}
