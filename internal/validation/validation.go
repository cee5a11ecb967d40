// Package validation turns struct tag violations into field-level error details.
// Request structs use gin's `binding` tags; the same rules apply when a service
// is called directly.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"ideahub/internal/apperror"
	"ideahub/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(jsonName)
	registerRules(v)
	return v
}

// registerRules adds the domain enum tags used on request structs
func registerRules(v *validator.Validate) {
	_ = v.RegisterValidation("idea_category", func(fl validator.FieldLevel) bool {
		return model.IsValidCategory(fl.Field().String())
	})
	_ = v.RegisterValidation("review_status", func(fl validator.FieldLevel) bool {
		return model.IsReviewStatus(fl.Field().String())
	})
}

var reviewStatuses = []string{model.StatusUnderReview, model.StatusApproved, model.StatusRejected, model.StatusImplemented}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// Install makes gin's binding report JSON field names
func Install() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonName)
		registerRules(v)
	}
}

// Struct validates req and returns a validation *apperror.Error on failure
func Struct(req any) error {
	if err := validate.Struct(req); err != nil {
		return FromBindError(err)
	}
	return nil
}

// FromBindError converts a binding or validation failure into a validation error
func FromBindError(err error) *apperror.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = message(fe)
		}
		return apperror.Validation("Invalid request payload", details)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		return apperror.Validation("Invalid request payload", map[string]string{typeErr.Field: "has the wrong type"})
	case errors.As(err, &syntaxErr):
		return apperror.Validation("Malformed JSON body", nil)
	}
	return apperror.Validation("Invalid request payload", nil)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "idea_category":
		return "must be one of: " + strings.Join(model.Categories, " ")
	case "review_status":
		return "must be one of: " + strings.Join(reviewStatuses, " ")
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
