package handlers

import (
	"context"
	"net/http"

	"store-finder/middleware"
	"store-finder/models"
	"store-finder/services"
)

type Accounts interface {
	Register(ctx context.Context, input services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Token(user *models.User) (string, error)
}

type AuthHandler struct {
	accounts Accounts
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func NewAuthHandler(accounts Accounts) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// RegisterUser creates the account and logs the new user straight in.
func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), input)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	token, err := h.accounts.Token(user)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (h *AuthHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}
	token, user, err := h.accounts.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}
