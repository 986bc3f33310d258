package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
	nonDigits     = regexp.MustCompile(`[^0-9]`)
)

// Validator checks request structs against their validate tags
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the mobile rule and json field names
func New() *Validator {
	v := validator.New()

	// Custom validators
	v.RegisterValidation("mobile", validateMobile)

	// Report json field names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate checks struct tags and returns a readable error naming the
// first failing field
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("%s: %s", fe.Field(), describe(fe))
	}
	return err
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "mobile":
		return "must be a 10-digit mobile number"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// NormalizeMobile strips everything but digits
func NormalizeMobile(mobile string) string {
	return nonDigits.ReplaceAllString(mobile, "")
}

func validateMobile(fl validator.FieldLevel) bool {
	return mobilePattern.MatchString(NormalizeMobile(fl.Field().String()))
}
