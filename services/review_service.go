package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"store-finder/models"
	"store-finder/utils/errors"
)

type ReviewRepository interface {
	Insert(ctx context.Context, review *models.Review) error
	FindByStore(ctx context.Context, storeID primitive.ObjectID) ([]models.Review, error)
}

type ReviewService struct {
	reviews ReviewRepository
	stores  StoreLookup
	cache   Cache
	now     func() time.Time
}

func NewReviewService(reviews ReviewRepository, stores StoreLookup, cache Cache) *ReviewService {
	return &ReviewService{reviews: reviews, stores: stores, cache: cache, now: time.Now}
}

func (s *ReviewService) AddReview(ctx context.Context, storeID, authorID primitive.ObjectID, text string, rating int) (*models.Review, error) {
	review := &models.Review{
		Created: s.now().UTC(),
		Author:  authorID,
		Store:   storeID,
		Text:    strings.TrimSpace(text),
		Rating:  rating,
	}
	if err := validateStruct(review, nil); err != nil {
		return nil, err
	}

	store, err := s.stores.FindByID(ctx, storeID, false)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.ErrNotFound
	}

	if err := s.reviews.Insert(ctx, review); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, topCacheKey); err != nil {
			logrus.WithError(err).Warn("failed to invalidate top stores cache")
		}
	}
	logrus.WithFields(logrus.Fields{"store_id": storeID.Hex(), "rating": rating}).Info("review added")
	return review, nil
}

// FindByStore lists the reviews of an existing store, newest first.
func (s *ReviewService) FindByStore(ctx context.Context, storeID primitive.ObjectID) ([]models.Review, error) {
	store, err := s.stores.FindByID(ctx, storeID, false)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.ErrNotFound
	}
	return s.reviews.FindByStore(ctx, storeID)
}
