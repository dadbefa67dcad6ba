// Package validate checks operation payloads before anything is written.
package validate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Error is a rejected payload field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			f := fl.Field().Float()
			return !math.IsNaN(f) && !math.IsInf(f, 0)
		})
	})
	return v
}

// RequiredText rejects a value that is empty after trimming whitespace.
func RequiredText(value, field string) error {
	if err := instance().Var(value, "notblank"); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		return &Error{Field: field, Message: field + " cannot be empty"}
	}
	return nil
}

// Struct validates payload against its `validate` tags and reports the
// first failing field by its `label` tag.
func Struct(payload any) error {
	err := instance().Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &Error{Field: fe.Field(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank", "required":
		return fe.Field() + " cannot be empty"
	case "gte":
		if fe.Param() == "0" {
			return fe.Field() + " cannot be negative"
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "finite":
		return fe.Field() + " must be a finite number"
	case "ne":
		return fmt.Sprintf("%s cannot be %q", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
