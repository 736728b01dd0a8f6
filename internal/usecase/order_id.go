package usecase

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"
)

// 画面に出す注文番号を作る約束
type OrderIDGenerator interface {
	NewOrderID(userID int64, now time.Time) (string, error)
}

// YYYYMMDD + ユーザーID + HHMMSS + 乱数4桁
// 同じ秒に同じユーザーが注文しても大抵は衝突しない。衝突時は一意制約で弾く
type TimestampOrderIDGenerator struct {
	random io.Reader
}

func NewTimestampOrderIDGenerator() *TimestampOrderIDGenerator {
	return &TimestampOrderIDGenerator{random: rand.Reader}
}

func (g *TimestampOrderIDGenerator) NewOrderID(userID int64, now time.Time) (string, error) {
	n, err := rand.Int(g.random, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("order id suffix: %w", err)
	}

	return now.Format("20060102") +
		strconv.FormatInt(userID, 10) +
		now.Format("150405") +
		fmt.Sprintf("%04d", n.Int64()), nil
}
