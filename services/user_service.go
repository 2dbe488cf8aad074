package services

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"store-finder/models"
	"store-finder/repositories"
	"store-finder/utils/errors"
)

type UserRepository interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, name, email string) (*models.User, error)
	AddHeart(ctx context.Context, userID, storeID primitive.ObjectID) (*models.User, error)
	RemoveHeart(ctx context.Context, userID, storeID primitive.ObjectID) (*models.User, error)
}

// StoreLookup is the part of the store service hearts need.
type StoreLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID, includeReviews bool) (*models.Store, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Store, error)
}

type UserService struct {
	users    UserRepository
	stores   StoreLookup
	tokens   *TokenIssuer
	hashCost int
}

type RegisterInput struct {
	Email           string `json:"email" validate:"required,email"`
	Name            string `json:"name" validate:"required"`
	Password        string `json:"password" validate:"required,min=4"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,min=4,eqfield=Password"`
}

// ProfileInput is a partial profile update. Nil means "leave as is".
type ProfileInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type profileFields struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func NewUserService(users UserRepository, stores StoreLookup, tokens *TokenIssuer) *UserService {
	return &UserService{users: users, stores: stores, tokens: tokens, hashCost: bcrypt.DefaultCost}
}

// Register creates a new user
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := validateStruct(input, userFieldMessages); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.ErrDuplicateEmail
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, errors.Wrap(err, "HASH_ERROR", "failed to hash password", http.StatusInternalServerError)
	}

	user := &models.User{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: string(passwordHash),
		Hearts:       []primitive.ObjectID{},
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if stderrors.Is(err, repositories.ErrDuplicateKey) {
			return nil, errors.ErrDuplicateEmail
		}
		return nil, err
	}
	logrus.WithField("user_id", user.ID.Hex()).Info("user registered")
	return user, nil
}

// Authenticate never says whether the email or the password was wrong.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.ErrAuthentication
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.ErrAuthentication
	}
	return user, nil
}

// Login authenticates a user and returns a JWT
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *UserService) Token(user *models.User) (string, error) {
	return s.tokens.Issue(user)
}

func (s *UserService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.ErrNotFound
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, input ProfileInput) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := profileFields{Name: user.Name, Email: user.Email}
	if input.Name != nil {
		fields.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		fields.Email = normalizeEmail(*input.Email)
	}
	if err := validateStruct(fields, userFieldMessages); err != nil {
		return nil, err
	}

	updated, err := s.users.UpdateProfile(ctx, id, fields.Name, fields.Email)
	if err != nil {
		if stderrors.Is(err, repositories.ErrDuplicateKey) {
			return nil, errors.ErrDuplicateEmail
		}
		return nil, err
	}
	if updated == nil {
		return nil, errors.ErrNotFound
	}
	return updated, nil
}

// ToggleHeart adds the store to the user's hearts, or removes it when it is
// already there, and returns the resulting list.
func (s *UserService) ToggleHeart(ctx context.Context, userID, storeID primitive.ObjectID) ([]primitive.ObjectID, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.FindByID(ctx, storeID, false)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.ErrNotFound
	}

	toggle := s.users.AddHeart
	for _, h := range user.Hearts {
		if h == storeID {
			toggle = s.users.RemoveHeart
			break
		}
	}
	updated, err := toggle(ctx, userID, storeID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, errors.ErrNotFound
	}
	if updated.Hearts == nil {
		return []primitive.ObjectID{}, nil
	}
	return updated.Hearts, nil
}

func (s *UserService) GetHearts(ctx context.Context, userID primitive.ObjectID) ([]models.Store, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.stores.FindByIDs(ctx, user.Hearts)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
