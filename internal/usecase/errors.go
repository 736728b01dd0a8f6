package usecase

import (
	"errors"
	"time"
)

// handlerはerrors.IsでHTTPステータスに変換する
var (
	ErrNotFound = errors.New("not found")

	// 同じ商品が既にカートにある（数量は足さない）
	ErrAlreadyInCart = errors.New("product already in cart")

	ErrInvalidQuantity = errors.New("invalid quantity")

	// カートが無い、または空で注文できない
	ErrEmptyOrMissingCart = errors.New("cart is empty")

	// 注文番号の衝突。もう一度注文すれば通る
	ErrDuplicateOrderID = errors.New("duplicate order id")

	// 注文トランザクションが想定外の理由で失敗した（ロールバック済み）
	ErrTransactionFailure = errors.New("transaction failed")

	ErrInvalidFilter           = errors.New("invalid filter")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrProductInUse            = errors.New("product is referenced by orders")
	ErrInvalidInput            = errors.New("invalid input")
	ErrUnauthorized            = errors.New("unauthorized")
)

// 現在の時間
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
