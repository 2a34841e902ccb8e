// Package service holds the application logic behind every HTTP route:
// CRUD for the ERP/CRM records, billing rules, and the reminder engine.
package service

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Loc *time.Location
}

// Now implements port.Clock.
func (c SystemClock) Now() time.Time {
	if c.Loc == nil {
		return time.Now()
	}
	return time.Now().In(c.Loc)
}

var _ port.Clock = SystemClock{}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct's validate tags and reports the first
// failure as an ErrValidation named after the JSON field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.ErrValidation{Field: "body", Message: err.Error()}
	}
	fe := verrs[0]
	return &domain.ErrValidation{Field: fe.Field(), Message: validationMessage(fe)}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "campo obrigatório"
	case "email":
		return "e-mail inválido"
	case "datetime":
		return "data inválida, use AAAA-MM-DD"
	case "oneof":
		return "valor deve ser um de: " + fe.Param()
	case "min":
		return "valor mínimo: " + fe.Param()
	case "max":
		return "valor máximo: " + fe.Param()
	case "url":
		return "URL inválida"
	}
	return "valor inválido (" + fe.Tag() + ")"
}

func requireTenant(t domain.Tenant) error {
	if !t.Valid() {
		return &domain.ErrTenantRequired{}
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}

func isNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}
