package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"store-finder/models"
)

type ReviewRepository struct {
	collection *mongo.Collection
}

func NewReviewRepository(collection *mongo.Collection) *ReviewRepository {
	return &ReviewRepository{collection: collection}
}

func (r *ReviewRepository) EnsureIndexes(ctx context.Context) error {
	return EnsureIndexes(ctx, r.collection, models.ReviewIndexes)
}

func (r *ReviewRepository) Insert(ctx context.Context, review *models.Review) error {
	result, err := r.collection.InsertOne(ctx, review)
	if err != nil {
		return writeErr("insert review", err)
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("insert review: unexpected id type %T", result.InsertedID)
	}
	review.ID = id
	return nil
}

// FindByStore returns the reviews of a store, newest first.
func (r *ReviewRepository) FindByStore(ctx context.Context, storeID primitive.ObjectID) ([]models.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"store": storeID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	return reviews, nil
}
