package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"store-finder/models"
	"store-finder/services"
)

type MockStores struct {
	mock.Mock
}

func (m *MockStores) Create(ctx context.Context, fields models.StoreFields) (*models.Store, error) {
	args := m.Called(ctx, fields)
	store, _ := args.Get(0).(*models.Store)
	return store, args.Error(1)
}

func (m *MockStores) Update(ctx context.Context, id primitive.ObjectID, fields models.StoreFields) (*models.Store, error) {
	args := m.Called(ctx, id, fields)
	store, _ := args.Get(0).(*models.Store)
	return store, args.Error(1)
}

func (m *MockStores) CheckOwner(ctx context.Context, id, userID primitive.ObjectID) (*models.Store, error) {
	args := m.Called(ctx, id, userID)
	store, _ := args.Get(0).(*models.Store)
	return store, args.Error(1)
}

func (m *MockStores) FindBySlug(ctx context.Context, slug string, includeReviews bool) (*models.Store, error) {
	args := m.Called(ctx, slug, includeReviews)
	store, _ := args.Get(0).(*models.Store)
	return store, args.Error(1)
}

func (m *MockStores) FindAll(ctx context.Context, page int, includeReviews bool) (*services.StorePage, error) {
	args := m.Called(ctx, page, includeReviews)
	result, _ := args.Get(0).(*services.StorePage)
	return result, args.Error(1)
}

func (m *MockStores) FindByTag(ctx context.Context, tag string) (*services.TagPage, error) {
	args := m.Called(ctx, tag)
	result, _ := args.Get(0).(*services.TagPage)
	return result, args.Error(1)
}

func (m *MockStores) GetTagsList(ctx context.Context) ([]models.TagCount, error) {
	args := m.Called(ctx)
	tags, _ := args.Get(0).([]models.TagCount)
	return tags, args.Error(1)
}

func (m *MockStores) GetTopStores(ctx context.Context) ([]models.TopStore, error) {
	args := m.Called(ctx)
	top, _ := args.Get(0).([]models.TopStore)
	return top, args.Error(1)
}

func (m *MockStores) FindNear(ctx context.Context, lat, lng, maxDistance float64) ([]models.NearbyStore, error) {
	args := m.Called(ctx, lat, lng, maxDistance)
	stores, _ := args.Get(0).([]models.NearbyStore)
	return stores, args.Error(1)
}

func (m *MockStores) Search(ctx context.Context, q string) ([]models.Store, error) {
	args := m.Called(ctx, q)
	stores, _ := args.Get(0).([]models.Store)
	return stores, args.Error(1)
}

type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) Register(ctx context.Context, input services.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, input)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockAccounts) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(1).(*models.User)
	return args.String(0), user, args.Error(2)
}

func (m *MockAccounts) Token(user *models.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockProfiles) UpdateProfile(ctx context.Context, id primitive.ObjectID, input services.ProfileInput) (*models.User, error) {
	args := m.Called(ctx, id, input)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockProfiles) ToggleHeart(ctx context.Context, userID, storeID primitive.ObjectID) ([]primitive.ObjectID, error) {
	args := m.Called(ctx, userID, storeID)
	hearts, _ := args.Get(0).([]primitive.ObjectID)
	return hearts, args.Error(1)
}

func (m *MockProfiles) GetHearts(ctx context.Context, userID primitive.ObjectID) ([]models.Store, error) {
	args := m.Called(ctx, userID)
	stores, _ := args.Get(0).([]models.Store)
	return stores, args.Error(1)
}

type MockReviews struct {
	mock.Mock
}

func (m *MockReviews) AddReview(ctx context.Context, storeID, authorID primitive.ObjectID, text string, rating int) (*models.Review, error) {
	args := m.Called(ctx, storeID, authorID, text, rating)
	review, _ := args.Get(0).(*models.Review)
	return review, args.Error(1)
}

func (m *MockReviews) FindByStore(ctx context.Context, storeID primitive.ObjectID) ([]models.Review, error) {
	args := m.Called(ctx, storeID)
	reviews, _ := args.Get(0).([]models.Review)
	return reviews, args.Error(1)
}
