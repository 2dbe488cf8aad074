package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"store-finder/middleware"
	"store-finder/utils/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to write response")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.ErrInvalidInput
	}
	return nil
}

func pathObjectID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		return primitive.NilObjectID, errors.ErrNotFound
	}
	return id, nil
}

func currentUser(r *http.Request) (primitive.ObjectID, error) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return primitive.NilObjectID, errors.ErrUnauthorized
	}
	return id, nil
}
