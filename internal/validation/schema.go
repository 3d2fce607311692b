package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/GuillaumeBld/Bank-Risk-Analytics/internal/errors"
)

var (
	schemaOnce sync.Once
	schema     *validator.Validate
)

// Schema returns the shared validator with the pipeline's custom tags:
//
//	finite  float is neither NaN nor infinite
//	ticker  non-empty identifier without whitespace
//	year    calendar year between 1900 and 2100
func Schema() *validator.Validate {
	schemaOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterValidation("finite", isFinite)
		v.RegisterValidation("ticker", isTicker)
		v.RegisterValidation("year", isYear)
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("csv"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		schema = v
	})
	return schema
}

// Struct validates one row against its struct tags and returns a
// VALIDATION AppError naming every failing field
func Struct(row interface{}) error {
	err := Schema().Struct(row)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("schema validation failed", err)
	}
	return apperrors.NewValidationError(Describe(fieldErrs), nil)
}

// Describe renders validation errors as "field: rule" pairs
func Describe(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func isFinite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		v := fl.Field().Float()
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	default:
		return false
	}
}

func isTicker(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) > 32 {
		return false
	}
	return strings.IndexFunc(s, unicode.IsSpace) < 0
}

func isYear(fl validator.FieldLevel) bool {
	y := fl.Field().Int()
	return y >= 1900 && y <= 2100
}
