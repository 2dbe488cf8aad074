package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"store-finder/models"
	"store-finder/repositories"
	"store-finder/utils/errors"
)

const (
	topStoresLimit   = 10
	nearLimit        = 10
	searchLimit      = 5
	maxSlugAttempts  = 5
	fallbackSlugBase = "store"

	tagsCacheKey = "tags"
	topCacheKey  = "top"
)

type StoreRepository interface {
	Insert(ctx context.Context, store *models.Store) error
	FindByID(ctx context.Context, id primitive.ObjectID, includeReviews bool) (*models.Store, error)
	FindBySlug(ctx context.Context, slug string, includeReviews bool) (*models.Store, error)
	FindAll(ctx context.Context, skip, limit int64, includeReviews bool) ([]models.Store, error)
	Count(ctx context.Context) (int64, error)
	FindByTag(ctx context.Context, tag string, includeReviews bool) ([]models.Store, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Store, error)
	CountSlugs(ctx context.Context, base string, exclude primitive.ObjectID) (int64, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Store, error)
	TagsList(ctx context.Context) ([]models.TagCount, error)
	TopStores(ctx context.Context, limit int64) ([]models.TopStore, error)
	Near(ctx context.Context, lng, lat, maxDistance float64, limit int64) ([]models.NearbyStore, error)
	Search(ctx context.Context, q string, limit int64) ([]models.Store, error)
}

// Cache is a JSON cache for read-heavy aggregates. It may be nil.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}

type StoreService struct {
	repo            StoreRepository
	cache           Cache
	pageSize        int
	nearMaxDistance float64
	now             func() time.Time
}

type StorePage struct {
	Stores []models.Store `json:"stores"`
	Page   int            `json:"page"`
	Pages  int            `json:"pages"`
	Count  int64          `json:"count"`
}

type TagPage struct {
	Tag    string            `json:"tag"`
	Tags   []models.TagCount `json:"tags"`
	Stores []models.Store    `json:"stores"`
}

func NewStoreService(repo StoreRepository, cache Cache, pageSize int, nearMaxDistance float64) *StoreService {
	return &StoreService{
		repo:            repo,
		cache:           cache,
		pageSize:        pageSize,
		nearMaxDistance: nearMaxDistance,
		now:             time.Now,
	}
}

// Create validates the fields, derives a unique slug and persists the store.
func (s *StoreService) Create(ctx context.Context, fields models.StoreFields) (*models.Store, error) {
	store := &models.Store{Tags: []string{}}
	applyFields(store, fields)
	if fields.Author != nil {
		store.Author = *fields.Author
	}
	if store.Created.IsZero() {
		store.Created = s.now().UTC()
	}
	if err := validateStore(store, fields.Invalid...); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		candidate, err := s.deriveSlug(ctx, store.Name, primitive.NilObjectID, attempt)
		if err != nil {
			return nil, err
		}
		store.Slug = candidate
		err = s.repo.Insert(ctx, store)
		if stderrors.Is(err, repositories.ErrDuplicateKey) {
			logrus.WithFields(logrus.Fields{"slug": candidate, "attempt": attempt}).Warn("slug taken by a concurrent write, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		s.invalidate(ctx, tagsCacheKey, topCacheKey)
		logrus.WithFields(logrus.Fields{"store_id": store.ID.Hex(), "slug": store.Slug}).Info("store created")
		return store, nil
	}
	return nil, errors.ErrDuplicateSlug
}

// Update merges the provided fields into the stored document. The slug is
// re-derived only when the name actually changes.
func (s *StoreService) Update(ctx context.Context, id primitive.ObjectID, fields models.StoreFields) (*models.Store, error) {
	existing, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.ErrNotFound
	}

	merged := *existing
	applyFields(&merged, fields)
	if err := validateStore(&merged, fields.Invalid...); err != nil {
		return nil, err
	}

	set := bson.M{}
	if fields.Name != nil {
		set["name"] = merged.Name
	}
	if fields.Description != nil {
		set["description"] = merged.Description
	}
	if fields.Tags != nil {
		set["tags"] = merged.Tags
	}
	if fields.Location != nil {
		set["location"] = merged.Location
	}
	if fields.Photo != nil {
		set["photo"] = merged.Photo
	}
	nameChanged := merged.Name != existing.Name

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		if nameChanged {
			candidate, err := s.deriveSlug(ctx, merged.Name, id, attempt)
			if err != nil {
				return nil, err
			}
			set["slug"] = candidate
		}
		if len(set) == 0 {
			return existing, nil
		}
		updated, err := s.repo.UpdateFields(ctx, id, set)
		if nameChanged && stderrors.Is(err, repositories.ErrDuplicateKey) {
			logrus.WithFields(logrus.Fields{"slug": set["slug"], "attempt": attempt}).Warn("slug taken by a concurrent write, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, errors.ErrNotFound
		}
		s.invalidate(ctx, tagsCacheKey, topCacheKey)
		logrus.WithFields(logrus.Fields{"store_id": id.Hex(), "slug": updated.Slug}).Info("store updated")
		return updated, nil
	}
	return nil, errors.ErrDuplicateSlug
}

// CheckOwner loads a store for editing by userID.
func (s *StoreService) CheckOwner(ctx context.Context, id, userID primitive.ObjectID) (*models.Store, error) {
	store, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.ErrNotFound
	}
	if store.Author != userID {
		return nil, errors.ErrForbidden
	}
	return store, nil
}

// deriveSlug slugifies name and suffixes it with -<n+1> when n stores already
// use the base. Later attempts push the suffix further to step over holes left
// by renamed stores. Two callers reading before either writes get the same
// answer; the unique index turns that into a retry.
func (s *StoreService) deriveSlug(ctx context.Context, name string, exclude primitive.ObjectID, attempt int) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = fallbackSlugBase
	}
	n, err := s.repo.CountSlugs(ctx, base, exclude)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return base, nil
	}
	suffix := n + 1
	if attempt > 1 {
		suffix += int64(attempt - 1)
	}
	return fmt.Sprintf("%s-%d", base, suffix), nil
}

func (s *StoreService) FindByID(ctx context.Context, id primitive.ObjectID, includeReviews bool) (*models.Store, error) {
	return s.repo.FindByID(ctx, id, includeReviews)
}

// FindBySlug returns nil, nil when no store has the slug.
func (s *StoreService) FindBySlug(ctx context.Context, storeSlug string, includeReviews bool) (*models.Store, error) {
	return s.repo.FindBySlug(ctx, storeSlug, includeReviews)
}

// FindAll returns one page of stores, newest first. Pages are 1-based; a
// page past the end comes back empty with Pages set so callers can redirect.
func (s *StoreService) FindAll(ctx context.Context, page int, includeReviews bool) (*StorePage, error) {
	if page < 1 {
		page = 1
	}
	size := int64(s.pageSize)
	if int64(page-1) > (math.MaxInt64-size)/size {
		count, err := s.repo.Count(ctx)
		if err != nil {
			return nil, err
		}
		return &StorePage{Stores: []models.Store{}, Page: page, Pages: pageCount(count, size), Count: count}, nil
	}
	skip := int64(page-1) * size

	var (
		stores []models.Store
		count  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stores, err = s.repo.FindAll(gctx, skip, size, includeReviews)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = s.repo.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &StorePage{Stores: stores, Page: page, Pages: pageCount(count, size), Count: count}, nil
}

func pageCount(count, size int64) int {
	return int((count + size - 1) / size)
}

func (s *StoreService) FindByTag(ctx context.Context, tag string) (*TagPage, error) {
	tag = strings.TrimSpace(tag)
	var (
		tags   []models.TagCount
		stores []models.Store
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tags, err = s.GetTagsList(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stores, err = s.repo.FindByTag(gctx, tag, false)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &TagPage{Tag: tag, Tags: tags, Stores: stores}, nil
}

func (s *StoreService) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Store, error) {
	return s.repo.FindByIDs(ctx, ids)
}

// GetTagsList returns every tag with the number of stores carrying it,
// most used first and then alphabetically.
func (s *StoreService) GetTagsList(ctx context.Context) ([]models.TagCount, error) {
	var tags []models.TagCount
	if s.cached(ctx, tagsCacheKey, &tags) {
		return tags, nil
	}
	tags, err := s.repo.TagsList(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, tagsCacheKey, tags)
	return tags, nil
}

// GetTopStores returns up to ten stores with at least two reviews, best
// average rating first and then by name.
func (s *StoreService) GetTopStores(ctx context.Context) ([]models.TopStore, error) {
	var top []models.TopStore
	if s.cached(ctx, topCacheKey, &top) {
		return top, nil
	}
	top, err := s.repo.TopStores(ctx, topStoresLimit)
	if err != nil {
		return nil, err
	}
	s.store(ctx, topCacheKey, top)
	return top, nil
}

// FindNear returns stores within maxDistance meters of the point, closest
// first. A non-positive maxDistance uses the configured default.
func (s *StoreService) FindNear(ctx context.Context, lat, lng, maxDistance float64) ([]models.NearbyStore, error) {
	if fieldErrs := coordinateErrors(lng, lat); len(fieldErrs) > 0 {
		return nil, errors.NewValidationError(fieldErrs...)
	}
	if maxDistance <= 0 {
		maxDistance = s.nearMaxDistance
	}
	return s.repo.Near(ctx, lng, lat, maxDistance, nearLimit)
}

func (s *StoreService) Search(ctx context.Context, q string) ([]models.Store, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.Store{}, nil
	}
	return s.repo.Search(ctx, q, searchLimit)
}

func (s *StoreService) cached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	if err := s.cache.GetJSON(ctx, key, dst); err != nil {
		logrus.WithError(err).WithField("key", key).Debug("cache lookup failed")
		return false
	}
	return true
}

func (s *StoreService) store(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, value); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("failed to cache value")
	}
}

func (s *StoreService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		logrus.WithError(err).WithField("keys", keys).Warn("failed to invalidate cache")
	}
}

// applyFields copies the provided fields onto store, trimming text and
// forcing the location type. Author is set only on creation.
func applyFields(store *models.Store, fields models.StoreFields) {
	if fields.Name != nil {
		store.Name = strings.TrimSpace(*fields.Name)
	}
	if fields.Description != nil {
		store.Description = strings.TrimSpace(*fields.Description)
	}
	if fields.Tags != nil {
		store.Tags = cleanTags(fields.Tags)
	}
	if fields.Location != nil {
		store.Location = models.GeoPoint{
			Coordinates: fields.Location.Coordinates,
			Address:     strings.TrimSpace(fields.Location.Address),
		}
	}
	if fields.Photo != nil {
		store.Photo = *fields.Photo
	}
	store.Location.Type = models.PointType
}

// cleanTags trims tags and drops blanks and repeats, keeping first-seen order.
func cleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func validateStore(store *models.Store, invalid ...errors.FieldError) error {
	extra := append([]errors.FieldError{}, invalid...)
	if len(store.Location.Coordinates) == 2 {
		extra = append(extra, coordinateErrors(store.Location.Coordinates[0], store.Location.Coordinates[1])...)
	}
	return validateStruct(store, nil, extra...)
}

func coordinateErrors(lng, lat float64) []errors.FieldError {
	var out []errors.FieldError
	if lng < -180 || lng > 180 {
		out = append(out, errors.FieldError{Field: "lng", Message: "Longitude must be between -180 and 180"})
	}
	if lat < -90 || lat > 90 {
		out = append(out, errors.FieldError{Field: "lat", Message: "Latitude must be between -90 and 90"})
	}
	return out
}
