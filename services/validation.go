package services

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"store-finder/utils/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Keyed by "field|tag" first, then "field".
var fieldMessages = map[string]string{
	"name":                    "Please enter a store name",
	"location.coordinates":    "You must supply coordinates!",
	"location.address":        "You must supply an address!",
	"author":                  "You must supply an author",
	"store":                   "You must supply a store",
	"text":                    "Your review must have text!",
	"rating":                  "Rating must be between 1 and 5",
	"email":                   "Email is not valid!",
	"password":                "Password cannot be less than 4 characters",
	"passwordConfirm|eqfield": "Oops! Passwords do not match",
	"passwordConfirm":         "Password cannot be less than 4 characters",
}

// userFieldMessages overrides fieldMessages for account forms, where "name" is a person.
var userFieldMessages = map[string]string{
	"name": "You must supply a name!",
}

// validateStruct runs the struct tags of s and reports every violation,
// plus any extra field errors the caller computed itself.
func validateStruct(s any, overrides map[string]string, extra ...errors.FieldError) error {
	var fields []errors.FieldError
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) {
			return fmt.Errorf("validate: %w", err)
		}
		for _, fe := range verrs {
			field := fieldPath(fe.Namespace())
			fields = append(fields, errors.FieldError{Field: field, Message: messageFor(field, fe.Tag(), overrides)})
		}
	}
	fields = append(fields, extra...)
	if len(fields) == 0 {
		return nil
	}
	return errors.NewValidationError(fields...)
}

// fieldPath drops the root struct name: "Store.location.address" -> "location.address".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func messageFor(field, tag string, overrides map[string]string) string {
	for _, table := range []map[string]string{overrides, fieldMessages} {
		if msg, ok := table[field+"|"+tag]; ok {
			return msg
		}
		if msg, ok := table[field]; ok {
			return msg
		}
	}
	return fmt.Sprintf("%s is invalid", field)
}
