package repository_test

import (
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var baseTime = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

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

func seedCategory(t *testing.T, gdb *gorm.DB, name string) model.Category {
	t.Helper()
	c := model.Category{Name: name}
	require.NoError(t, gdb.Create(&c).Error)
	return c
}

func link(t *testing.T, gdb *gorm.DB, p model.Product, cats ...model.Category) {
	t.Helper()
	require.NoError(t, gdb.Model(&p).Association("Categories").Append(&cats))
}

func names(ps []model.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
