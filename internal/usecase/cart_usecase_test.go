package usecase_test

import (
	"context"
	"sync"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCartView(t *testing.T) {
	lines := []model.CartProduct{
		{ID: 1, ProductID: 10, Quantity: 3, Product: model.Product{Name: "Mug", Price: decimal.RequireFromString("19.99")}},
		{ID: 2, ProductID: 11, Quantity: 1, Product: model.Product{Name: "Tee", Price: decimal.RequireFromString("0.01")}},
	}

	v := usecase.ComputeCartView(lines)
	require.Len(t, v.Lines, 2)
	assert.Equal(t, "59.97", v.Lines[0].Subtotal.StringFixed(2))
	assert.Equal(t, "59.98", v.Total.StringFixed(2))

	empty := usecase.ComputeCartView(nil)
	assert.Empty(t, empty.Lines)
	assert.True(t, empty.Total.IsZero())
}

func TestCartUsecase_GetCart_CreatesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u := seedUser(t, f.db, "a@example.com")

	c1, err := f.cart.GetOrCreateCart(ctx, u.ID)
	require.NoError(t, err)
	c2, err := f.cart.GetOrCreateCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID)

	v, err := f.cart.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Lines)
	assert.True(t, v.Total.IsZero())

	var n int64
	require.NoError(t, f.db.Model(&model.Cart{}).Where("user_id = ?", u.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCartUsecase_AddLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u := seedUser(t, f.db, "a@example.com")
	mug := seedProduct(t, f.db, "Mug", "19.99", 1)

	v, err := f.cart.AddLine(ctx, u.ID, usecase.AddLineInput{ProductID: mug.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, "Mug", v.Lines[0].Name)
	assert.Equal(t, uint(3), v.Lines[0].Quantity)
	assert.Equal(t, "59.97", v.Total.StringFixed(2))
	assert.Equal(t, baseTime, v.Lines[0].AddedAt.UTC())

	// 同じ商品は2行にならない
	_, err = f.cart.AddLine(ctx, u.ID, usecase.AddLineInput{ProductID: mug.ID, Quantity: 1})
	assert.ErrorIs(t, err, usecase.ErrAlreadyInCart)

	_, err = f.cart.AddLine(ctx, u.ID, usecase.AddLineInput{ProductID: 9999, Quantity: 1})
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	_, err = f.cart.AddLine(ctx, u.ID, usecase.AddLineInput{ProductID: mug.ID, Quantity: 0})
	assert.ErrorIs(t, err, usecase.ErrInvalidQuantity)

	// 上限は9999
	tee := seedProduct(t, f.db, "Tee", "5.00", 2)
	_, err = f.cart.AddLine(ctx, u.ID, usecase.AddLineInput{ProductID: tee.ID, Quantity: 10000})
	assert.ErrorIs(t, err, usecase.ErrInvalidQuantity)
	v, err = f.cart.AddLine(ctx, u.ID, usecase.AddLineInput{ProductID: tee.ID, Quantity: 9999})
	require.NoError(t, err)
	assert.Len(t, v.Lines, 2)

	_, err = f.cart.AddLine(ctx, 0, usecase.AddLineInput{ProductID: mug.ID, Quantity: 1})
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
}

func TestCartUsecase_UpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u := seedUser(t, f.db, "a@example.com")
	other := seedUser(t, f.db, "b@example.com")
	mug := seedProduct(t, f.db, "Mug", "19.99", 1)
	tee := seedProduct(t, f.db, "Tee", "5.00", 2)

	_, err := f.cart.AddLine(ctx, u.ID, usecase.AddLineInput{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)
	v, err := f.cart.AddLine(ctx, u.ID, usecase.AddLineInput{ProductID: tee.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, v.Lines, 2)

	var mugLine int64
	for _, l := range v.Lines {
		if l.ProductID == mug.ID {
			mugLine = l.ID
		}
	}

	v, err = f.cart.UpdateLineQuantity(ctx, u.ID, mugLine, 2)
	require.NoError(t, err)
	assert.Equal(t, "44.98", v.Total.StringFixed(2))

	_, err = f.cart.UpdateLineQuantity(ctx, u.ID, mugLine, -1)
	assert.ErrorIs(t, err, usecase.ErrInvalidQuantity)
	_, err = f.cart.UpdateLineQuantity(ctx, u.ID, mugLine, 10000)
	assert.ErrorIs(t, err, usecase.ErrInvalidQuantity)

	// 他人の明細は見えない
	_, err = f.cart.GetCart(ctx, other.ID)
	require.NoError(t, err)
	_, err = f.cart.UpdateLineQuantity(ctx, other.ID, mugLine, 5)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
	_, err = f.cart.RemoveLine(ctx, other.ID, mugLine)
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	// 0 は削除
	v, err = f.cart.UpdateLineQuantity(ctx, u.ID, mugLine, 0)
	require.NoError(t, err)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, tee.ID, v.Lines[0].ProductID)

	_, err = f.cart.RemoveLine(ctx, u.ID, mugLine)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestCartUsecase_RemoveLine_NoCart(t *testing.T) {
	f := newFixture(t, nil)
	u := seedUser(t, f.db, "a@example.com")

	_, err := f.cart.RemoveLine(context.Background(), u.ID, 1)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestCartUsecase_ConcurrentAddSameProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u := seedUser(t, f.db, "a@example.com")
	mug := seedProduct(t, f.db, "Mug", "19.99", 1)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.cart.AddLine(ctx, u.ID, usecase.AddLineInput{ProductID: mug.ID, Quantity: 1})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, usecase.ErrAlreadyInCart)
	}
	assert.Equal(t, 1, ok)

	var carts, lines int64
	require.NoError(t, f.db.Model(&model.Cart{}).Count(&carts).Error)
	require.NoError(t, f.db.Model(&model.CartProduct{}).Count(&lines).Error)
	assert.Equal(t, int64(1), carts)
	assert.Equal(t, int64(1), lines)
}
