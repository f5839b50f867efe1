package content

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks struct tags and returns a ValidationError keyed by JSON
// field path (for example "translations[en].name").
func Validate(value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	problems := Problems{}
	for _, fe := range fieldErrs {
		problems.Add(fieldPath(fe.Namespace()), message(fe))
	}
	return problems.Err()
}

// ValidationProblems is Validate returning the raw problem map so callers can
// add domain checks before producing the error.
func ValidationProblems(value any) (Problems, error) {
	problems := Problems{}
	if err := Validate(value); err != nil {
		var verr ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		problems.Merge(verr.Fields)
	}
	return problems, nil
}

func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "url", "http_url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "iso4217":
		return "must be an ISO 4217 currency code"
	case "ulid":
		return "must be a valid ULID"
	case "timezone":
		return "must be an IANA time zone"
	case "boolean":
		return "must be true or false"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// CheckVar validates a single value against validator tags and returns a
// human message, or "" when the value passes.
func CheckVar(value any, tag string) string {
	err := validate.Var(value, tag)
	if err == nil {
		return ""
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return message(fieldErrs[0])
	}
	return err.Error()
}
