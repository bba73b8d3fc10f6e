package mongostore

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
	"storefront/internal/store"
)

type cartRepo struct {
	coll *mongo.Collection
}

func (r cartRepo) Get(ctx context.Context, userID primitive.ObjectID) (models.Cart, error) {
	var cart models.Cart
	if err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart); err != nil {
		return models.Cart{}, mapError(err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return cart, nil
}

func (r cartRepo) Save(ctx context.Context, cart *models.Cart) error {
	now := time.Now().UTC()
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}

	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"userId": cart.UserID},
		bson.M{
			"$set":         bson.M{"items": cart.Items, "updatedAt": now},
			"$setOnInsert": bson.M{"userId": cart.UserID, "createdAt": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(cart)
	return mapError(err)
}

type orderRepo struct {
	coll *mongo.Collection
}

func (r orderRepo) Insert(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, order)
	return mapError(err)
}

func (r orderRepo) Get(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r orderRepo) GetForUser(ctx context.Context, userID, id primitive.ObjectID) (models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id, "userId": userID})
}

func (r orderRepo) findOne(ctx context.Context, filter bson.M) (models.Order, error) {
	var order models.Order
	if err := r.coll.FindOne(ctx, filter).Decode(&order); err != nil {
		return models.Order{}, mapError(err)
	}
	return order, nil
}

func (r orderRepo) List(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	query := bson.M{}
	if filter.UserID != nil {
		query["userId"] = *filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"shippingAddress.name": rx},
			bson.M{"shippingAddress.phone": rx},
			bson.M{"trackingNumber": rx},
		}
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := r.coll.Find(ctx, query, findOptions(sortDoc("-createdAt"), filter.Page))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// updateWhere applies update to the order matching filter. When nothing
// matches it tells a missing order apart from a failed precondition.
func (r orderRepo) updateWhere(ctx context.Context, id primitive.ObjectID, filter, update bson.M) (models.Order, error) {
	var order models.Order
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&order)
	if err == nil {
		return order, nil
	}
	if err != mongo.ErrNoDocuments {
		return models.Order{}, mapError(err)
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return models.Order{}, err
	}
	if n == 0 {
		return models.Order{}, store.ErrNotFound
	}
	return models.Order{}, store.ErrStaleState
}

func (r orderRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) (models.Order, error) {
	return r.updateWhere(ctx, id,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}},
	)
}

func (r orderRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus, trackingNumber string) (models.Order, error) {
	set := bson.M{"status": status, "updatedAt": time.Now().UTC()}
	if trackingNumber != "" {
		set["trackingNumber"] = trackingNumber
	}
	return r.updateWhere(ctx, id, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r orderRepo) ClearStockDecremented(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.updateWhere(ctx, id,
		bson.M{"_id": id, "stockDecremented": true},
		bson.M{"$set": bson.M{"stockDecremented": false}},
	)
	return err
}

func (r orderRepo) SetPaymentSession(ctx context.Context, id primitive.ObjectID, sessionID string) (models.Order, error) {
	return r.updateWhere(ctx, id,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"paymentSessionId": sessionID, "updatedAt": time.Now().UTC()}},
	)
}

func (r orderRepo) HasDelivered(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"userId":          userID,
		"status":          models.OrderStatusDelivered,
		"items.productId": productID,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
