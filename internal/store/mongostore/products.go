package mongostore

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
	"storefront/internal/store"
)

type productRepo struct {
	coll *mongo.Collection
}

func (r productRepo) Insert(ctx context.Context, product *models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	if product.Images == nil {
		product.Images = []string{}
	}

	if _, err := r.coll.InsertOne(ctx, product); err != nil {
		return mapError(err)
	}
	product.Normalize()
	return nil
}

func (r productRepo) findOne(ctx context.Context, filter bson.M) (models.Product, error) {
	var p models.Product
	if err := r.coll.FindOne(ctx, filter).Decode(&p); err != nil {
		return models.Product{}, mapError(err)
	}
	p.Normalize()
	return p, nil
}

func (r productRepo) Get(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r productRepo) GetBySlug(ctx context.Context, slug string) (models.Product, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func productQuery(f store.ProductFilter) bson.M {
	query := bson.M{}
	if !f.IncludeInactive {
		query["isActive"] = true
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.Brand != "" {
		query["brand"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Brand), Options: "i"}
	}
	if f.FeaturedOnly {
		query["isFeatured"] = true
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		query["price"] = price
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": rx},
			bson.M{"description": rx},
			bson.M{"brand": rx},
		}
	}
	return query
}

func sortDoc(key string) bson.D {
	if key == "" {
		key = "-createdAt"
	}
	dir := 1
	if strings.HasPrefix(key, "-") {
		dir = -1
		key = strings.TrimPrefix(key, "-")
	}
	return bson.D{{Key: key, Value: dir}, {Key: "_id", Value: dir}}
}

func findOptions(sort bson.D, page store.Page) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if page.Limit > 0 {
		opts.SetSkip(page.Skip()).SetLimit(page.Limit)
	}
	return opts
}

func (r productRepo) List(ctx context.Context, filter store.ProductFilter) ([]models.Product, int64, error) {
	query := productQuery(filter)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := r.coll.Find(ctx, query, findOptions(sortDoc(filter.Sort), filter.Page))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	for i := range products {
		products[i].Normalize()
	}
	return products, total, nil
}

func (r productRepo) Update(ctx context.Context, id primitive.ObjectID, u store.ProductUpdate) (models.Product, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	unset := bson.M{}

	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Slug != nil {
		set["slug"] = *u.Slug
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Brand != nil {
		set["brand"] = *u.Brand
	}
	if u.Category != nil {
		set["category"] = models.NewStringList(*u.Category)
	}
	if u.Images != nil {
		set["images"] = *u.Images
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.ClearDiscount {
		unset["discountPrice"] = ""
	} else if u.DiscountPrice != nil {
		set["discountPrice"] = *u.DiscountPrice
	}
	if u.StockQuantity != nil {
		set["stockQuantity"] = *u.StockQuantity
	}
	if u.IsActive != nil {
		set["isActive"] = *u.IsActive
	}
	if u.IsFeatured != nil {
		set["isFeatured"] = *u.IsFeatured
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var p models.Product
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		return models.Product{}, mapError(err)
	}
	p.Normalize()
	return p, nil
}

func (r productRepo) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	filter := bson.M{
		"_id":           id,
		"isActive":      true,
		"stockQuantity": bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"stockQuantity": -qty},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrInsufficientStock
}

func (r productRepo) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"stockQuantity": qty},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r productRepo) SetRating(ctx context.Context, id primitive.ObjectID, rating float64, reviewCount int) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"rating": rating, "reviewCount": reviewCount},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r productRepo) Categories(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "category")
}

func (r productRepo) Brands(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "brand")
}

func (r productRepo) distinct(ctx context.Context, field string) ([]string, error) {
	values, err := r.coll.Distinct(ctx, field, bson.M{"isActive": true})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}
