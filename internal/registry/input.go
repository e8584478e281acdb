package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"review_gateway/internal/apperr"
	"review_gateway/internal/models"
)

// CreateInput registers a provider. Endpoint, Deployment, Model and Password
// are optional; empty means unset.
type CreateInput struct {
	Name       string              `json:"name" validate:"required,max=100"`
	Kind       models.ProviderKind `json:"provider" validate:"required,provider_kind"`
	APIKey     string              `json:"apiKey" validate:"required"`
	Endpoint   string              `json:"endpoint" validate:"omitempty,url"`
	Deployment string              `json:"deployment" validate:"max=255"`
	Model      string              `json:"model" validate:"max=255"`
	Password   string              `json:"password" validate:"omitempty,min=4"`
}

// Field is an optional update value distinguishing an omitted JSON key, an
// explicit null, and a string.
type Field struct {
	Set   bool
	Null  bool
	Value string
}

// Value returns a Field holding s.
func Value(s string) Field { return Field{Set: true, Value: s} }

// Null returns a Field that clears the column.
func Null() Field { return Field{Set: true, Null: true} }

func (f *Field) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		f.Value = ""
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// Cleared reports whether the field was supplied as null or "".
func (f Field) Cleared() bool {
	return f.Set && (f.Null || f.Value == "")
}

// UpdateInput changes a provider. Omitted fields are left unchanged; explicit
// null or "" clears optional columns and the password gate.
type UpdateInput struct {
	Name       Field `json:"name"`
	Kind       Field `json:"provider"`
	APIKey     Field `json:"apiKey"`
	Endpoint   Field `json:"endpoint"`
	Deployment Field `json:"deployment"`
	Model      Field `json:"model"`
	Password   Field `json:"password"`

	// CurrentPassword unlocks a gated provider over HTTP. The service
	// itself does not read it.
	CurrentPassword string `json:"currentPassword,omitempty"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("provider_kind", func(fl validator.FieldLevel) bool {
		return models.ProviderKind(fl.Field().String()).Valid()
	})
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return sf.Name
		}
		return name
	})
	return v
}

// validationError turns validator output into a single user-facing message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperr.Validation(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "provider_kind":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), kindList())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func kindList() string {
	names := make([]string, len(models.ProviderKinds))
	for i, k := range models.ProviderKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
