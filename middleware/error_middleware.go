package middleware

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"store-finder/utils/errors"
)

// ErrorMiddleware turns panics into a standardized 500 JSON response
func ErrorMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logrus.WithFields(logrus.Fields{
						"panic":  rec,
						"method": r.Method,
						"path":   r.URL.Path,
					}).Error("panic recovered")
					WriteError(w, errors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes err as an APIError JSON response. Anything that is not an
// APIError is reported as an internal error without leaking its text.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *errors.APIError
	if !stderrors.As(err, &apiErr) {
		logrus.WithError(err).Error("unexpected error")
		apiErr = errors.ErrInternal
	}
	if apiErr.Status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"code":    apiErr.Code,
			"details": apiErr.Details,
		}).Error("server error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		logrus.WithError(err).Warn("failed to write error response")
	}
}
