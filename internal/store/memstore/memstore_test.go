package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

func seedProduct(t *testing.T, s *Store, slug string, stock int) models.Product {
	t.Helper()
	p := models.Product{Title: slug, Slug: slug, Price: 100, StockQuantity: stock, IsActive: true}
	require.NoError(t, s.Products().Insert(context.Background(), &p))
	return p
}

func TestDecrementStockIsConditional(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "tea", 3)

	require.NoError(t, s.Products().DecrementStock(ctx, p.ID, 2))
	err := s.Products().DecrementStock(ctx, p.ID, 2)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	got, err := s.Products().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StockQuantity)
	assert.True(t, got.InStock)

	assert.ErrorIs(t, s.Products().DecrementStock(ctx, primitive.NewObjectID(), 1), store.ErrNotFound)
}

func TestInsertRejectsDuplicateSlug(t *testing.T) {
	s := New()
	seedProduct(t, s, "tea", 1)

	dup := models.Product{Title: "Tea again", Slug: "tea"}
	assert.ErrorIs(t, s.Products().Insert(context.Background(), &dup), store.ErrConflict)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "tea", 5)
	boom := errors.New("boom")

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.Products().DecrementStock(ctx, p.ID, 4); err != nil {
			return err
		}
		order := models.Order{UserID: primitive.NewObjectID(), Status: models.OrderStatusPending}
		if err := s.Orders().Insert(ctx, &order); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Products().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)

	orders, total, err := s.Orders().List(ctx, store.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)
}

func TestTransitionStatusDetectsStaleState(t *testing.T) {
	s := New()
	ctx := context.Background()
	order := models.Order{UserID: primitive.NewObjectID(), Status: models.OrderStatusPending, StockDecremented: true}
	require.NoError(t, s.Orders().Insert(ctx, &order))

	updated, err := s.Orders().TransitionStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCanceled, updated.Status)

	_, err = s.Orders().TransitionStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusCanceled)
	assert.ErrorIs(t, err, store.ErrStaleState)

	require.NoError(t, s.Orders().ClearStockDecremented(ctx, order.ID))
	assert.ErrorIs(t, s.Orders().ClearStockDecremented(ctx, order.ID), store.ErrStaleState)
}

func TestOrderListFiltersAndPaginates(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := primitive.NewObjectID()
	for i := 0; i < 5; i++ {
		o := models.Order{UserID: user, Status: models.OrderStatusPending, ShippingAddress: models.ShippingAddress{Name: "Sita", Phone: "98000"}}
		require.NoError(t, s.Orders().Insert(ctx, &o))
	}
	other := models.Order{UserID: primitive.NewObjectID(), Status: models.OrderStatusDelivered, ShippingAddress: models.ShippingAddress{Name: "Ram"}}
	require.NoError(t, s.Orders().Insert(ctx, &other))

	page, total, err := s.Orders().List(ctx, store.OrderFilter{UserID: &user, Page: store.Page{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page, 2)

	found, total, err := s.Orders().List(ctx, store.OrderFilter{Search: "ram"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, other.ID, found[0].ID)

	_, err = s.Orders().GetForUser(ctx, user, other.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPaymentSessionIsUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := models.Order{UserID: primitive.NewObjectID()}
	b := models.Order{UserID: primitive.NewObjectID()}
	require.NoError(t, s.Orders().Insert(ctx, &a))
	require.NoError(t, s.Orders().Insert(ctx, &b))

	_, err := s.Orders().SetPaymentSession(ctx, a.ID, "sess-1")
	require.NoError(t, err)
	_, err = s.Orders().SetPaymentSession(ctx, b.ID, "sess-1")
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestReviewUniquePerUserAndProduct(t *testing.T) {
	s := New()
	ctx := context.Background()
	product, user := primitive.NewObjectID(), primitive.NewObjectID()

	first := models.Review{ProductID: product, UserID: user, Rating: 4, IsApproved: true}
	require.NoError(t, s.Reviews().Insert(ctx, &first))
	second := models.Review{ProductID: product, UserID: user, Rating: 2}
	assert.ErrorIs(t, s.Reviews().Insert(ctx, &second), store.ErrConflict)

	approved := true
	list, total, err := s.Reviews().List(ctx, store.ReviewFilter{ProductID: &product, Approved: &approved})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, 4, list[0].Rating)
}

func TestCartSaveKeepsIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := primitive.NewObjectID()

	cart := models.Cart{UserID: user}
	require.NoError(t, s.Carts().Save(ctx, &cart))
	firstID := cart.ID

	next := models.Cart{UserID: user, Items: []models.CartItem{{ProductID: primitive.NewObjectID(), Quantity: 2, Price: 10}}}
	require.NoError(t, s.Carts().Save(ctx, &next))
	assert.Equal(t, firstID, next.ID)

	got, err := s.Carts().Get(ctx, user)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	got.Items[0].Quantity = 99
	again, err := s.Carts().Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].Quantity)
}

func TestRollbackKeepsWritesMadeOutsideTransaction(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "tea", 5)
	boom := errors.New("boom")
	buyer, other := primitive.NewObjectID(), primitive.NewObjectID()

	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithTransaction(ctx, func(ctx context.Context) error {
			if err := s.Products().DecrementStock(ctx, p.ID, 2); err != nil {
				return err
			}
			order := models.Order{UserID: buyer, Status: models.OrderStatusPending}
			if err := s.Orders().Insert(ctx, &order); err != nil {
				return err
			}
			close(inside)
			<-release
			return boom
		})
	}()

	<-inside
	cart := models.Cart{UserID: other, Items: []models.CartItem{{ProductID: p.ID, Quantity: 1, Price: 100}}}
	require.NoError(t, s.Carts().Save(ctx, &cart))
	stock := 50
	_, err := s.Products().Update(ctx, p.ID, store.ProductUpdate{StockQuantity: &stock})
	require.NoError(t, err)
	close(release)
	assert.ErrorIs(t, <-done, boom)

	got, err := s.Carts().Get(ctx, other)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	product, err := s.Products().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, product.StockQuantity)

	_, total, err := s.Orders().List(ctx, store.OrderFilter{UserID: &buyer})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestRollbackRestoresDeletedReview(t *testing.T) {
	s := New()
	ctx := context.Background()
	review := models.Review{ProductID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Rating: 5}
	require.NoError(t, s.Reviews().Insert(ctx, &review))

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.Reviews().Delete(ctx, review.ID); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	got, err := s.Reviews().Get(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)
}

func TestPaginateHandlesHugePages(t *testing.T) {
	items := []int{1, 2, 3}
	assert.Empty(t, paginate(items, store.Page{Page: 922337203685477580, Limit: 100}))
	assert.Equal(t, []int{3}, paginate(items, store.Page{Page: 2, Limit: 2}))
	assert.Equal(t, items, paginate(items, store.Page{}))
}

func TestCategoriesOrderAndChildren(t *testing.T) {
	s := New()
	ctx := context.Background()
	repo := s.Categories()

	root := models.Category{Name: "Groceries", Slug: "groceries", IsActive: true, SortOrder: 2}
	require.NoError(t, repo.Insert(ctx, &root))
	first := models.Category{Name: "Bakery", Slug: "bakery", IsActive: true, SortOrder: 1}
	require.NoError(t, repo.Insert(ctx, &first))
	child := models.Category{Name: "Dairy", Slug: "dairy", IsActive: true, SortOrder: 2, ParentID: &root.ID}
	require.NoError(t, repo.Insert(ctx, &child))

	dup := models.Category{Name: "Again", Slug: "dairy"}
	assert.ErrorIs(t, repo.Insert(ctx, &dup), store.ErrConflict)

	list, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"bakery", "dairy", "groceries"}, []string{list[0].Slug, list[1].Slug, list[2].Slug})

	has, err := repo.HasActiveChildren(ctx, root.ID)
	require.NoError(t, err)
	assert.True(t, has)

	inactive := false
	_, err = repo.Update(ctx, child.ID, store.CategoryUpdate{IsActive: &inactive})
	require.NoError(t, err)
	has, err = repo.HasActiveChildren(ctx, root.ID)
	require.NoError(t, err)
	assert.False(t, has)

	list, err = repo.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDistinctCategoriesAndBrandsSkipInactive(t *testing.T) {
	s := New()
	ctx := context.Background()
	products := []models.Product{
		{Title: "Tea", Slug: "tea", Brand: "Ilam", Category: models.NewStringList([]string{"drinks", "tea"}), IsActive: true},
		{Title: "Coffee", Slug: "coffee", Brand: "Jumla", Category: models.NewStringList([]string{"drinks"}), IsActive: true},
		{Title: "Old", Slug: "old", Brand: "Gone", Category: models.NewStringList([]string{"retired"})},
	}
	for i := range products {
		require.NoError(t, s.Products().Insert(ctx, &products[i]))
	}

	categories, err := s.Products().Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"drinks", "tea"}, categories)

	brands, err := s.Products().Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ilam", "Jumla"}, brands)
}
