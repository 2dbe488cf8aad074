package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicateKey is returned when a write violates a unique index.
var ErrDuplicateKey = errors.New("duplicate key")

const (
	StoresCollection  = "stores"
	UsersCollection   = "users"
	ReviewsCollection = "reviews"
)

// EnsureIndexes creates the given indexes, logging and returning the first failure.
func EnsureIndexes(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel) error {
	if len(indexes) == 0 {
		return nil
	}
	names, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logrus.WithError(err).WithField("collection", collection.Name()).Error("failed to create indexes")
		return fmt.Errorf("create indexes on %s: %w", collection.Name(), err)
	}
	logrus.WithFields(logrus.Fields{"collection": collection.Name(), "indexes": names}).Debug("indexes ensured")
	return nil
}

func writeErr(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicateKey)
	}
	return fmt.Errorf("%s: %w", op, err)
}
