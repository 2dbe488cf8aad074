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

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(collection *mongo.Collection) *UserRepository {
	return &UserRepository{collection: collection}
}

func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	return EnsureIndexes(ctx, r.collection, models.UserIndexes)
}

func (r *UserRepository) Insert(ctx context.Context, user *models.User) error {
	if user.Hearts == nil {
		user.Hearts = []primitive.ObjectID{}
	}
	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		return writeErr("insert user", err)
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("insert user: unexpected id type %T", result.InsertedID)
	}
	user.ID = id
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, email string) (*models.User, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{"$set": bson.M{"name": name, "email": email}}, "update user")
}

func (r *UserRepository) AddHeart(ctx context.Context, userID, storeID primitive.ObjectID) (*models.User, error) {
	return r.findOneAndUpdate(ctx, userID, bson.M{"$addToSet": bson.M{"hearts": storeID}}, "add heart")
}

func (r *UserRepository) RemoveHeart(ctx context.Context, userID, storeID primitive.ObjectID) (*models.User, error) {
	return r.findOneAndUpdate(ctx, userID, bson.M{"$pull": bson.M{"hearts": storeID}}, "remove heart")
}

func (r *UserRepository) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M, op string) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, writeErr(op, err)
	}
	return &user, nil
}
