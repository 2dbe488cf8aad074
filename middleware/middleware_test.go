package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"store-finder/utils/errors"
)

type stubParser struct {
	valid string
	id    primitive.ObjectID
}

func (p stubParser) Parse(token string) (primitive.ObjectID, error) {
	if token != p.valid {
		return primitive.NilObjectID, errors.ErrUnauthorized
	}
	return p.id, nil
}

func decodeAPIError(t *testing.T, rr *httptest.ResponseRecorder) errors.APIError {
	t.Helper()
	var body errors.APIError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestJWTMiddleware(t *testing.T) {
	id := primitive.NewObjectID()
	var seen primitive.ObjectID
	handler := JWTMiddleware(stubParser{valid: "good", id: id})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer good", http.StatusTeapot},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"bad token", "Bearer bad", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = primitive.NilObjectID
			req := httptest.NewRequest(http.MethodGet, "/account", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "UNAUTHORIZED", decodeAPIError(t, rr).Code)
				assert.True(t, seen.IsZero())
				return
			}
			assert.Equal(t, id, seen)
		})
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := UserIDFromContext(req.Context())
	assert.False(t, ok)
}

func TestWriteError(t *testing.T) {
	t.Run("api error keeps status and fields", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteError(rr, errors.NewValidationError(errors.FieldError{Field: "name", Message: "You must supply a name!"}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		body := decodeAPIError(t, rr)
		assert.Equal(t, "VALIDATION_ERROR", body.Code)
		require.Len(t, body.Fields, 1)
		assert.Equal(t, "name", body.Fields[0].Field)
	})

	t.Run("wrapped api error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteError(rr, fmt.Errorf("lookup: %w", errors.ErrNotFound))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("plain error hides details", func(t *testing.T) {
		hook := logtest.NewGlobal()
		defer hook.Reset()

		rr := httptest.NewRecorder()
		WriteError(rr, fmt.Errorf("mongo: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "connection refused")
		require.NotEmpty(t, hook.AllEntries())
		assert.Equal(t, logrus.ErrorLevel, hook.AllEntries()[0].Level)
	})
}

func TestErrorMiddleware_RecoversPanics(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	handler := ErrorMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stores", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", decodeAPIError(t, rr).Code)
	assert.Equal(t, "panic recovered", hook.AllEntries()[0].Message)
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allowed origin preflight", func(t *testing.T) {
		handler := CORSMiddleware([]string{"http://localhost:5173"})(next)
		req := httptest.NewRequest(http.MethodOptions, "/stores", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin passes through without headers", func(t *testing.T) {
		handler := CORSMiddleware([]string{"http://localhost:5173"})(next)
		req := httptest.NewRequest(http.MethodGet, "/stores", nil)
		req.Header.Set("Origin", "http://evil.example")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard echoes origin", func(t *testing.T) {
		handler := CORSMiddleware([]string{"*"})(next)
		req := httptest.NewRequest(http.MethodGet, "/stores", nil)
		req.Header.Set("Origin", "http://anywhere.example")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, "http://anywhere.example", rr.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestLoggingMiddleware(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	handler := LoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	t.Run("generates request id", func(t *testing.T) {
		hook.Reset()
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/stores", nil))

		assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))
		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, http.StatusCreated, entry.Data["status"])
		assert.Equal(t, 2, entry.Data["bytes"])
		assert.Equal(t, rr.Header().Get(RequestIDHeader), entry.Data["request_id"])
	})

	t.Run("keeps incoming request id", func(t *testing.T) {
		hook.Reset()
		req := httptest.NewRequest(http.MethodGet, "/stores", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc-123", hook.LastEntry().Data["request_id"])
	})
}
