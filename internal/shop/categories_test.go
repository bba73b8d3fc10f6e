package shop

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/store"
)

func TestCategoryCreateValidatesAndOrders(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()

	root, err := svc.Categories.Create(ctx, CategoryInput{Name: "Clothing", Slug: "Clothing", SortOrder: 2})
	require.NoError(t, err)
	assert.Equal(t, "clothing", root.Slug)
	assert.True(t, root.IsActive)

	_, err = svc.Categories.Create(ctx, CategoryInput{Name: "Hats", Slug: "hats", SortOrder: 1, ParentID: &root.ID})
	require.NoError(t, err)
	_, err = svc.Categories.Create(ctx, CategoryInput{Name: "Clothes", Slug: "clothing"})
	assert.ErrorIs(t, err, ErrConflict)

	missing := primitive.NewObjectID()
	_, err = svc.Categories.Create(ctx, CategoryInput{Name: "Orphan", Slug: "orphan", ParentID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Categories.Create(ctx, CategoryInput{Name: "", Slug: "blank"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Categories.Create(ctx, CategoryInput{Name: strings.Repeat("n", 101), Slug: "long"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Categories.Create(ctx, CategoryInput{Name: "No slug"})
	assert.ErrorIs(t, err, ErrValidation)

	list, err := svc.Categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "hats", list[0].Slug)
	assert.Equal(t, "clothing", list[1].Slug)
}

func TestCategoryUpdateAndDeactivate(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()

	root, err := svc.Categories.Create(ctx, CategoryInput{Name: "Crafts", Slug: "crafts"})
	require.NoError(t, err)
	child, err := svc.Categories.Create(ctx, CategoryInput{Name: "Pottery", Slug: "pottery", ParentID: &root.ID})
	require.NoError(t, err)

	_, err = svc.Categories.Update(ctx, root.ID, store.CategoryUpdate{ParentID: &root.ID})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Categories.Update(ctx, primitive.NewObjectID(), store.CategoryUpdate{Name: ptr("Nothing")})
	assert.ErrorIs(t, err, ErrNotFound)

	renamed, err := svc.Categories.Update(ctx, child.ID, store.CategoryUpdate{Name: ptr("  Clay Pottery "), SortOrder: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, "Clay Pottery", renamed.Name)
	assert.Equal(t, 3, renamed.SortOrder)

	_, err = svc.Categories.Deactivate(ctx, root.ID)
	assert.ErrorIs(t, err, ErrValidation, "active child blocks delete")

	_, err = svc.Categories.Deactivate(ctx, child.ID)
	require.NoError(t, err)
	_, err = svc.Categories.GetBySlug(ctx, "pottery")
	assert.ErrorIs(t, err, ErrNotFound)

	gone, err := svc.Categories.Deactivate(ctx, root.ID)
	require.NoError(t, err)
	assert.False(t, gone.IsActive)
	_, err = svc.Categories.Deactivate(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogDistinctCategoriesAndBrands(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()

	_, err := svc.Catalog.Create(ctx, ProductInput{Title: "Tea", Brand: "Ilam", Category: []string{"drinks"}, Price: 10})
	require.NoError(t, err)
	hidden, err := svc.Catalog.Create(ctx, ProductInput{Title: "Old Tea", Brand: "Gone", Category: []string{"retired"}, Price: 10})
	require.NoError(t, err)
	_, err = svc.Catalog.Deactivate(ctx, hidden.ID)
	require.NoError(t, err)

	categories, err := svc.Catalog.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"drinks"}, categories)

	brands, err := svc.Catalog.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ilam"}, brands)
}

func TestWishlistContains(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()
	user := primitive.NewObjectID()
	p := addProduct(t, svc, "Shawl", 2500, 1)

	in, err := svc.Wishlists.Contains(ctx, user, p.ID)
	require.NoError(t, err)
	assert.False(t, in)

	_, err = svc.Wishlists.Add(ctx, user, p.ID)
	require.NoError(t, err)
	in, err = svc.Wishlists.Contains(ctx, user, p.ID)
	require.NoError(t, err)
	assert.True(t, in)
}
