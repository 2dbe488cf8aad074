package handlers

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"store-finder/middleware"
	"store-finder/models"
	"store-finder/services"
)

type Profiles interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, input services.ProfileInput) (*models.User, error)
	ToggleHeart(ctx context.Context, userID, storeID primitive.ObjectID) ([]primitive.ObjectID, error)
	GetHearts(ctx context.Context, userID primitive.ObjectID) ([]models.Store, error)
}

type UserHandler struct {
	profiles Profiles
}

func NewUserHandler(profiles Profiles) *UserHandler {
	return &UserHandler{profiles: profiles}
}

func (h *UserHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	user, err := h.profiles.GetUser(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var input services.ProfileInput
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	user, err := h.profiles.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ToggleHeart(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	storeID, err := pathObjectID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	hearts, err := h.profiles.ToggleHeart(r.Context(), userID, storeID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hearts": hearts})
}

func (h *UserHandler) GetHearts(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	stores, err := h.profiles.GetHearts(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": stores})
}
