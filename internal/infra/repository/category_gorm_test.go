package repository_test

import (
	"context"
	"testing"

	infraRepo "storefront/internal/infra/repository"
	repo "storefront/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRepo_DeleteKeepsProducts(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	c := seedCategory(t, gdb, "kitchen")
	p := seedProduct(t, gdb, "Mug", "5.00", 1)
	link(t, gdb, p, c)

	cats := infraRepo.NewCategoryGormRepository(gdb)
	products := infraRepo.NewProductGormRepository(gdb)

	require.NoError(t, cats.Delete(ctx, c.ID))

	got, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Categories)

	assert.ErrorIs(t, cats.Delete(ctx, c.ID), repo.ErrNotFound)
}

func TestCategoryRepo_CreateRenameList(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	cats := infraRepo.NewCategoryGormRepository(gdb)

	b, err := cats.Create(ctx, "books")
	require.NoError(t, err)
	_, err = cats.Create(ctx, "art")
	require.NoError(t, err)

	require.NoError(t, cats.Rename(ctx, b.ID, "comics"))
	assert.ErrorIs(t, cats.Rename(ctx, 9999, "x"), repo.ErrNotFound)

	list, err := cats.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "art", list[0].Name)
	assert.Equal(t, "comics", list[1].Name)

	_, err = cats.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}
