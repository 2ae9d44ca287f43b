// Package validation checks API request bodies with validator/v10 and turns
// failures into domain validation errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
)

// keyCodePattern matches codes as users type them after normalisation,
// e.g. NKEY-ABC123 or PKEY-7QK2M9XH.
var keyCodePattern = regexp.MustCompile(`^[A-Z]{2,8}-[A-Z0-9]{4,32}$`)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the ledger's custom tags registered:
//
//	keycode   an upper-case PREFIX-CODE key code
//	platform  a platform name with at least one visible character and no control characters
//	chatid    a non-blank chat user id without whitespace
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("keycode", func(fl validator.FieldLevel) bool {
		return keyCodePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		return validPlatformName(fl.Field().String())
	})
	_ = v.RegisterValidation("chatid", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && !strings.ContainsFunc(s, unicode.IsSpace)
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain validation error on failure.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Var validates a single value against tag, reporting failures under field.
func (v *Validator) Var(field string, value any, tag string) error {
	err := v.v.Var(value, tag)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}
	return domainerrors.ValidationWithDetails("validation failed", map[string]string{
		field: friendlyMessage(validationErrs[0]),
	})
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[fieldPath(e)] = friendlyMessage(e)
	}
	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

// fieldPath drops the top-level struct name from the namespace, so nested
// and slice fields read like "items[2]".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func validPlatformName(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return !strings.ContainsFunc(s, unicode.IsControl)
}

//nolint:gocyclo // Switch statement covering validation tags is intentionally exhaustive.
func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "keycode":
		return "must look like NKEY-ABC123"
	case "platform":
		return "must be a visible platform name"
	case "chatid":
		return "must be a chat user id"
	case "min":
		switch e.Kind() {
		case reflect.Slice, reflect.Map:
			return fmt.Sprintf("must contain at least %s items", e.Param())
		case reflect.String:
			return fmt.Sprintf("must be at least %s characters", e.Param())
		default:
			return "must be at least " + e.Param()
		}
	case "max":
		switch e.Kind() {
		case reflect.Slice, reflect.Map:
			return fmt.Sprintf("must not contain more than %s items", e.Param())
		case reflect.String:
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		default:
			return "must not exceed " + e.Param()
		}
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	case "ne":
		return "must not be " + e.Param()
	default:
		return "is invalid"
	}
}
