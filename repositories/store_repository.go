package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"store-finder/models"
)

type StoreRepository struct {
	collection *mongo.Collection
	reviews    string
}

// NewStoreRepository reads reviews from the named collection when joining.
func NewStoreRepository(collection *mongo.Collection, reviewsCollection string) *StoreRepository {
	return &StoreRepository{collection: collection, reviews: reviewsCollection}
}

func (r *StoreRepository) EnsureIndexes(ctx context.Context) error {
	return EnsureIndexes(ctx, r.collection, models.StoreIndexes)
}

func (r *StoreRepository) Insert(ctx context.Context, store *models.Store) error {
	result, err := r.collection.InsertOne(ctx, store)
	if err != nil {
		return writeErr("insert store", err)
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("insert store: unexpected id type %T", result.InsertedID)
	}
	store.ID = id
	return nil
}

func (r *StoreRepository) FindByID(ctx context.Context, id primitive.ObjectID, includeReviews bool) (*models.Store, error) {
	return r.findOne(ctx, bson.M{"_id": id}, includeReviews)
}

func (r *StoreRepository) FindBySlug(ctx context.Context, slug string, includeReviews bool) (*models.Store, error) {
	return r.findOne(ctx, bson.M{"slug": slug}, includeReviews)
}

// findOne returns nil, nil when nothing matches.
func (r *StoreRepository) findOne(ctx context.Context, filter bson.M, includeReviews bool) (*models.Store, error) {
	if !includeReviews {
		var store models.Store
		err := r.collection.FindOne(ctx, filter).Decode(&store)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("find store: %w", err)
		}
		return &store, nil
	}

	stores, err := r.aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$limit", Value: 1}},
	}, true)
	if err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		return nil, nil
	}
	return &stores[0], nil
}

// FindAll returns a page of stores, newest first.
func (r *StoreRepository) FindAll(ctx context.Context, skip, limit int64, includeReviews bool) ([]models.Store, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$skip", Value: skip}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	return r.aggregate(ctx, pipeline, includeReviews)
}

func (r *StoreRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count stores: %w", err)
	}
	return n, nil
}

func (r *StoreRepository) FindByTag(ctx context.Context, tag string, includeReviews bool) ([]models.Store, error) {
	return r.aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: tagFilter(tag)}},
		{{Key: "$sort", Value: bson.D{{Key: "created", Value: -1}}}},
	}, includeReviews)
}

func (r *StoreRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Store, error) {
	if len(ids) == 0 {
		return []models.Store{}, nil
	}
	return r.aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": bson.M{"$in": ids}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created", Value: -1}}}},
	}, true)
}

// CountSlugs counts stores whose slug is base or base-<n>, ignoring exclude.
func (r *StoreRepository) CountSlugs(ctx context.Context, base string, exclude primitive.ObjectID) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, slugFilter(base, exclude))
	if err != nil {
		return 0, fmt.Errorf("count slugs: %w", err)
	}
	return n, nil
}

// UpdateFields applies set to the store and returns the updated document,
// or nil, nil when the id does not exist.
func (r *StoreRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Store, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var store models.Store
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&store)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, writeErr("update store", err)
	}
	return &store, nil
}

func (r *StoreRepository) TagsList(ctx context.Context) ([]models.TagCount, error) {
	cursor, err := r.collection.Aggregate(ctx, tagsPipeline())
	if err != nil {
		return nil, fmt.Errorf("aggregate tags: %w", err)
	}
	defer cursor.Close(ctx)

	tags := []models.TagCount{}
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags, nil
}

func (r *StoreRepository) TopStores(ctx context.Context, limit int64) ([]models.TopStore, error) {
	cursor, err := r.collection.Aggregate(ctx, topStoresPipeline(r.reviews, limit))
	if err != nil {
		return nil, fmt.Errorf("aggregate top stores: %w", err)
	}
	defer cursor.Close(ctx)

	stores := []models.TopStore{}
	if err := cursor.All(ctx, &stores); err != nil {
		return nil, fmt.Errorf("decode top stores: %w", err)
	}
	return stores, nil
}

// Near returns stores within maxDistance meters, closest first.
func (r *StoreRepository) Near(ctx context.Context, lng, lat, maxDistance float64, limit int64) ([]models.NearbyStore, error) {
	opts := options.Find().
		SetProjection(bson.M{"name": 1, "slug": 1, "description": 1, "photo": 1, "location": 1}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, nearFilter(lng, lat, maxDistance), opts)
	if err != nil {
		return nil, fmt.Errorf("find near stores: %w", err)
	}
	defer cursor.Close(ctx)

	stores := []models.NearbyStore{}
	if err := cursor.All(ctx, &stores); err != nil {
		return nil, fmt.Errorf("decode near stores: %w", err)
	}
	return stores, nil
}

// Search runs a text search over name and description, best match first.
func (r *StoreRepository) Search(ctx context.Context, q string, limit int64) ([]models.Store, error) {
	score := bson.M{"score": bson.M{"$meta": "textScore"}}
	opts := options.Find().SetProjection(score).SetSort(score).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"$text": bson.M{"$search": q}}, opts)
	if err != nil {
		return nil, fmt.Errorf("search stores: %w", err)
	}
	defer cursor.Close(ctx)

	stores := []models.Store{}
	if err := cursor.All(ctx, &stores); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}
	return stores, nil
}

func (r *StoreRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, includeReviews bool) ([]models.Store, error) {
	if includeReviews {
		pipeline = append(pipeline, reviewsLookup(r.reviews))
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate stores: %w", err)
	}
	defer cursor.Close(ctx)

	stores := []models.Store{}
	if err := cursor.All(ctx, &stores); err != nil {
		return nil, fmt.Errorf("decode stores: %w", err)
	}
	return stores, nil
}
