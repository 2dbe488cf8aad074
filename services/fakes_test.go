package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"store-finder/models"
	"store-finder/repositories"
)

// fakeStoreRepo keeps stores in memory and enforces a unique slug like the
// real index does.
type fakeStoreRepo struct {
	mu      sync.Mutex
	stores  []models.Store
	reviews map[primitive.ObjectID][]models.Review

	dupInserts      int // next N inserts fail with a duplicate key
	countSlugsCalls int
	tagsCalls       int
	topCalls        int
	nearArgs        []float64
}

func newFakeStoreRepo() *fakeStoreRepo {
	return &fakeStoreRepo{reviews: map[primitive.ObjectID][]models.Review{}}
}

func (f *fakeStoreRepo) slugTaken(slug string, except primitive.ObjectID) bool {
	for _, s := range f.stores {
		if s.Slug == slug && s.ID != except {
			return true
		}
	}
	return false
}

func (f *fakeStoreRepo) withReviews(s models.Store, include bool) models.Store {
	if include {
		s.Reviews = append([]models.Review{}, f.reviews[s.ID]...)
	}
	return s
}

func (f *fakeStoreRepo) Insert(_ context.Context, store *models.Store) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dupInserts > 0 {
		f.dupInserts--
		return repositories.ErrDuplicateKey
	}
	if f.slugTaken(store.Slug, primitive.NilObjectID) {
		return repositories.ErrDuplicateKey
	}
	if store.ID.IsZero() {
		store.ID = primitive.NewObjectID()
	}
	f.stores = append(f.stores, *store)
	return nil
}

func (f *fakeStoreRepo) find(match func(models.Store) bool, include bool) *models.Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.stores {
		if match(s) {
			out := f.withReviews(s, include)
			return &out
		}
	}
	return nil
}

func (f *fakeStoreRepo) FindByID(_ context.Context, id primitive.ObjectID, include bool) (*models.Store, error) {
	return f.find(func(s models.Store) bool { return s.ID == id }, include), nil
}

func (f *fakeStoreRepo) FindBySlug(_ context.Context, slug string, include bool) (*models.Store, error) {
	return f.find(func(s models.Store) bool { return s.Slug == slug }, include), nil
}

func (f *fakeStoreRepo) FindAll(_ context.Context, skip, limit int64, include bool) ([]models.Store, error) {
	if skip < 0 {
		return nil, errors.New("$skip must be a non-negative integer")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sorted := append([]models.Store{}, f.stores...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Created.After(sorted[j].Created) })
	out := []models.Store{}
	for i := skip; i < int64(len(sorted)) && (limit <= 0 || i < skip+limit); i++ {
		out = append(out, f.withReviews(sorted[i], include))
	}
	return out, nil
}

func (f *fakeStoreRepo) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.stores)), nil
}

func (f *fakeStoreRepo) FindByTag(_ context.Context, tag string, include bool) ([]models.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Store{}
	for _, s := range f.stores {
		for _, t := range s.Tags {
			if tag == "" || t == tag {
				out = append(out, f.withReviews(s, include))
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStoreRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Store{}
	for _, s := range f.stores {
		for _, id := range ids {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeStoreRepo) CountSlugs(_ context.Context, base string, exclude primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countSlugsCalls++
	re := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(base) + `(-[0-9]*)?$`)
	var n int64
	for _, s := range f.stores {
		if s.ID != exclude && re.MatchString(s.Slug) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStoreRepo) UpdateFields(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.stores {
		if f.stores[i].ID != id {
			continue
		}
		s := f.stores[i]
		for k, v := range set {
			switch k {
			case "name":
				s.Name = v.(string)
			case "slug":
				s.Slug = v.(string)
			case "description":
				s.Description = v.(string)
			case "tags":
				s.Tags = v.([]string)
			case "location":
				s.Location = v.(models.GeoPoint)
			case "photo":
				s.Photo = v.(string)
			}
		}
		if f.slugTaken(s.Slug, id) {
			return nil, repositories.ErrDuplicateKey
		}
		f.stores[i] = s
		return &s, nil
	}
	return nil, nil
}

func (f *fakeStoreRepo) TagsList(context.Context) ([]models.TagCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagsCalls++
	counts := map[string]int{}
	for _, s := range f.stores {
		for _, t := range s.Tags {
			counts[t]++
		}
	}
	out := []models.TagCount{}
	for tag, n := range counts {
		out = append(out, models.TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}

func (f *fakeStoreRepo) TopStores(_ context.Context, limit int64) ([]models.TopStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topCalls++
	out := []models.TopStore{}
	for _, s := range f.stores {
		reviews := f.reviews[s.ID]
		if len(reviews) < 2 {
			continue
		}
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		out = append(out, models.TopStore{
			ID: s.ID, Name: s.Name, Slug: s.Slug, Photo: s.Photo, Reviews: reviews,
			AverageRating: float64(sum) / float64(len(reviews)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		return out[i].Name < out[j].Name
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStoreRepo) Near(_ context.Context, lng, lat, maxDistance float64, limit int64) ([]models.NearbyStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nearArgs = []float64{lng, lat, maxDistance, float64(limit)}
	out := []models.NearbyStore{}
	for _, s := range f.stores {
		out = append(out, models.NearbyStore{ID: s.ID, Name: s.Name, Slug: s.Slug, Photo: s.Photo, Location: s.Location})
	}
	return out, nil
}

func (f *fakeStoreRepo) Search(_ context.Context, q string, limit int64) ([]models.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Store{}
	for _, s := range f.stores {
		if strings.Contains(strings.ToLower(s.Name+" "+s.Description), strings.ToLower(q)) && int64(len(out)) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStoreRepo) addReview(storeID primitive.ObjectID, ratings ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range ratings {
		f.reviews[storeID] = append(f.reviews[storeID], models.Review{
			ID: primitive.NewObjectID(), Store: storeID, Text: "review", Rating: r,
		})
	}
}

var errCacheMiss = errors.New("cache miss")

// fakeCache is an in-memory Cache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dst any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return errCacheMiss
	}
	return json.Unmarshal(raw, dst)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deletes = append(c.deletes, k)
	}
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
