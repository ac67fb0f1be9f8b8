package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers alias tags for common validations.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterAlias("pwd", "min=8") // password minimum length
	}
}

// ToFieldErrors converts binding/validation failures into the field-keyed
// error lists the API serializes under "errors".
func ToFieldErrors(err error) map[string][]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string][]string{"non_field_errors": {"invalid json"}}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			field := fe.Field()
			out[field] = append(out[field], messageFor(fe))
		}
		return out
	}

	return map[string][]string{"non_field_errors": {"invalid payload"}}
}

func messageFor(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Enter a valid email address"
	case "eq":
		if fe.Kind() == reflect.Bool && param == "true" {
			return "This field must be accepted"
		}
		return "Must be equal to " + param
	case "eqfield":
		return "Must match " + param
	case "min":
		return "Must be at least " + param + " characters long"
	case "max":
		return "Must be at most " + param + " characters long"
	case "datetime":
		return "Must match format " + param
	case "pwd":
		return "Must be at least 8 characters long"
	default:
		if param != "" {
			return "Failed validation '" + fe.Tag() + "' with parameter '" + param + "'"
		}
		return "Failed validation '" + fe.Tag() + "'"
	}
}
