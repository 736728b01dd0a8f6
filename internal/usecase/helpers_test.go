package usecase_test

import (
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var baseTime = time.Date(2025, 3, 4, 10, 20, 30, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// 同じ注文番号を返し続ける（重複の確認用）
type staticOrderID struct{ id string }

func (g staticOrderID) NewOrderID(int64, time.Time) (string, error) { return g.id, nil }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenInMemory(t.Name())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// sqliteで組み立てたusecase一式
type fixture struct {
	db       *gorm.DB
	cart     *usecase.CartUsecase
	order    *usecase.OrderUsecase
	product  *usecase.ProductUsecase
	category *usecase.CategoryUsecase
	audit    *usecase.AuditLogUsecase
	admin    *usecase.AdminOrderUsecase
}

func newFixture(t *testing.T, log *zap.Logger) fixture {
	t.Helper()
	if log == nil {
		log = zap.NewNop()
	}

	gdb := newTestDB(t)
	clock := fixedClock{now: baseTime}
	carts := infraRepo.NewCartGormRepository(gdb)
	products := infraRepo.NewProductGormRepository(gdb)
	txm := infraRepo.NewTxManagerGorm(gdb)

	return fixture{
		db:       gdb,
		cart:     usecase.NewCartUsecase(carts, carts, products, clock),
		order:    usecase.NewOrderUsecase(txm, usecase.NewTimestampOrderIDGenerator(), clock, nil, log),
		product:  usecase.NewProductUsecase(products, txm, clock),
		category: usecase.NewCategoryUsecase(infraRepo.NewCategoryGormRepository(gdb), txm, clock),
		audit:    usecase.NewAuditLogUsecase(infraRepo.NewAuditLogGormRepository(gdb)),
		admin:    usecase.NewAdminOrderUsecase(txm, clock),
	}
}

func seedUser(t *testing.T, gdb *gorm.DB, email string) model.User {
	t.Helper()
	u := model.User{Email: email, PasswordHash: "x", Role: model.RoleUser, IsActive: true}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

// n番目に作られた商品ほど created_at が新しい
func seedProduct(t *testing.T, gdb *gorm.DB, name string, price string, n int) model.Product {
	t.Helper()
	p := model.Product{
		Name:      name,
		Price:     decimal.RequireFromString(price),
		CreatedAt: baseTime.Add(time.Duration(n) * time.Minute),
	}
	require.NoError(t, gdb.Omit("Categories").Create(&p).Error)
	return p
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func names(ps []model.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}
