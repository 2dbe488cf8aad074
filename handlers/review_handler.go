package handlers

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"store-finder/middleware"
	"store-finder/models"
)

type Reviews interface {
	AddReview(ctx context.Context, storeID, authorID primitive.ObjectID, text string, rating int) (*models.Review, error)
	FindByStore(ctx context.Context, storeID primitive.ObjectID) ([]models.Review, error)
}

type ReviewHandler struct {
	reviews Reviews
}

func NewReviewHandler(reviews Reviews) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) AddReview(w http.ResponseWriter, r *http.Request) {
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
	var input struct {
		Text   string `json:"text"`
		Rating int    `json:"rating"`
	}
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	review, err := h.reviews.AddReview(r.Context(), storeID, userID, input.Text, input.Rating)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathObjectID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	reviews, err := h.reviews.FindByStore(r.Context(), storeID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}
