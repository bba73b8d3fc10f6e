package mongostore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"storefront/internal/models"
	"storefront/internal/store"
)

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

// countResponse answers the aggregate CountDocuments sends.
func countResponse(mt *mtest.T, n int64) bson.D {
	if n == 0 {
		return mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func updateResponse(matched int32) bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: matched},
		bson.E{Key: "nModified", Value: matched},
	)
}

func TestDecrementStock(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("applies when the guard matches", func(mt *mtest.T) {
		mt.AddMockResponses(updateResponse(1))

		err := productRepo{mt.Coll}.DecrementStock(ctx, primitive.NewObjectID(), 2)
		require.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
		assert.Nil(mt, mt.GetStartedEvent(), "no follow-up count on success")
	})

	mt.Run("reports insufficient stock when the product exists", func(mt *mtest.T) {
		mt.AddMockResponses(updateResponse(0), countResponse(mt, 1))

		err := productRepo{mt.Coll}.DecrementStock(ctx, primitive.NewObjectID(), 5)
		assert.ErrorIs(mt, err, store.ErrInsufficientStock)

		assert.Equal(mt, "update", mt.GetStartedEvent().CommandName)
		assert.Equal(mt, "aggregate", mt.GetStartedEvent().CommandName)
	})

	mt.Run("reports not found when the product is missing", func(mt *mtest.T) {
		mt.AddMockResponses(updateResponse(0), countResponse(mt, 0))

		err := productRepo{mt.Coll}.DecrementStock(ctx, primitive.NewObjectID(), 1)
		assert.ErrorIs(mt, err, store.ErrNotFound)
	})
}

func TestUpdateWhereSeparatesMissingFromStale(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	noMatch := mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})

	mt.Run("transition succeeds", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: id},
			{Key: "status", Value: string(models.OrderStatusCanceled)},
		}}))

		order, err := orderRepo{mt.Coll}.TransitionStatus(ctx, id, models.OrderStatusPending, models.OrderStatusCanceled)
		require.NoError(mt, err)
		assert.Equal(mt, id, order.ID)
		assert.Equal(mt, models.OrderStatusCanceled, order.Status)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "findAndModify", started.CommandName)
		query := started.Command.Lookup("query").Document()
		assert.Equal(mt, string(models.OrderStatusPending), query.Lookup("status").StringValue())
	})

	mt.Run("stale when the order exists", func(mt *mtest.T) {
		mt.AddMockResponses(noMatch, countResponse(mt, 1))

		_, err := orderRepo{mt.Coll}.TransitionStatus(ctx, primitive.NewObjectID(), models.OrderStatusPending, models.OrderStatusCanceled)
		assert.ErrorIs(mt, err, store.ErrStaleState)
	})

	mt.Run("not found when the order is missing", func(mt *mtest.T) {
		mt.AddMockResponses(noMatch, countResponse(mt, 0))

		_, err := orderRepo{mt.Coll}.TransitionStatus(ctx, primitive.NewObjectID(), models.OrderStatusPending, models.OrderStatusCanceled)
		assert.ErrorIs(mt, err, store.ErrNotFound)
	})

	mt.Run("clearing an already cleared flag is stale", func(mt *mtest.T) {
		mt.AddMockResponses(noMatch, countResponse(mt, 1))

		err := orderRepo{mt.Coll}.ClearStockDecremented(ctx, primitive.NewObjectID())
		assert.ErrorIs(mt, err, store.ErrStaleState)
	})
}

func TestInsertMapsDuplicateKeyToConflict(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate slug", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: storefront.categories index: slug_unique",
		}))

		c := models.Category{Name: "Tea", Slug: "tea", IsActive: true}
		err := categoryRepo{mt.Coll}.Insert(context.Background(), &c)
		assert.ErrorIs(mt, err, store.ErrConflict)
	})
}

func TestDistinctValuesAreSorted(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("brands", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "values", Value: bson.A{"Patan", "", "Boudha"}}))

		brands, err := productRepo{mt.Coll}.Brands(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []string{"Boudha", "Patan"}, brands)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "distinct", started.CommandName)
		assert.Equal(mt, "brand", started.Command.Lookup("key").StringValue())
	})
}
