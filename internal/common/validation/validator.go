package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"snapmaster-gcp/internal/common/errors"
)

// Scope selects how a missing field is named in the error message
type Scope int

const (
	// ScopeBody names top-level request body fields
	ScopeBody Scope = iota
	// ScopeParam names entries of the request's param bag
	ScopeParam
)

var scriptNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validator wraps go-playground/validator and reports the first failing
// field as a validation AppError
type Validator struct {
	validator *validator.Validate
}

// NewValidator creates a validator with the provider's custom tags registered
func NewValidator() *Validator {
	v := validator.New()
	registerProviderValidators(v)

	// Report JSON names so messages match what the caller sent
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validator: v}
}

// First validates s and returns only the first failing field. Struct fields
// are checked in declaration order, so declaration order is the order in
// which missing fields are reported.
func (v *Validator) First(s interface{}, scope Scope) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return errors.ValidationError(err.Error())
	}
	return errors.ValidationError(formatFieldError(fieldErrs[0], scope))
}

// All validates s and reports every failing field in one error. Used for
// configuration, where the operator wants the full list at once.
func (v *Validator) All(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ConfigError(err.Error())
	}

	messages := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		messages[i] = formatConfigError(fe)
	}
	return errors.ConfigError(fmt.Sprintf("invalid configuration: %s", strings.Join(messages, "; ")))
}

func formatFieldError(fe validator.FieldError, scope Scope) string {
	switch fe.Tag() {
	case "required":
		if scope == ScopeParam {
			return fmt.Sprintf("missing required parameter %q", fe.Field())
		}
		return fmt.Sprintf("missing required field %q in request body", fe.Field())
	case "eq", "oneof":
		return fmt.Sprintf("unknown %s %q", fe.Field(), fmt.Sprintf("%v", fe.Value()))
	case "script_name":
		return fmt.Sprintf("invalid %s %q: only letters, digits, '-' and '_' are allowed", fe.Field(), fmt.Sprintf("%v", fe.Value()))
	default:
		return fmt.Sprintf("invalid %s: failed %s validation", fe.Field(), fe.Tag())
	}
}

func formatConfigError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func registerProviderValidators(v *validator.Validate) {
	// Action names become script file names
	v.RegisterValidation("script_name", func(fl validator.FieldLevel) bool {
		return scriptNamePattern.MatchString(fl.Field().String())
	})
}

var globalValidator = NewValidator()

// First validates s using the global validator instance
func First(s interface{}, scope Scope) error {
	return globalValidator.First(s, scope)
}

// All validates s using the global validator instance
func All(s interface{}) error {
	return globalValidator.All(s)
}
