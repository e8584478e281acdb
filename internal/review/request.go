package review

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"review_gateway/internal/apperr"
	"review_gateway/internal/models"
	"review_gateway/internal/providers"
)

// Limits on a single file. The number of files is not capped.
const (
	MaxFileNameLength = 255
	MaxContentLength  = 100000
)

// File is one file submitted for review.
type File struct {
	Name     string `json:"name" validate:"required,max=255"`
	Language string `json:"language"`
	Content  string `json:"content" validate:"required,max=100000"`
}

// Request asks for a review of Files. PromptID and ProviderID fall back to
// the default prompt and the active provider.
type Request struct {
	Files      []File `json:"files" validate:"required,min=1,dive"`
	PromptID   string `json:"promptId,omitempty"`
	ProviderID string `json:"providerId,omitempty"`
	Password   string `json:"password,omitempty"`
}

// Result is a completed review.
type Result struct {
	ReviewedFiles []providers.ReviewedFile `json:"reviewedFiles"`
	Provider      models.ProviderKind      `json:"provider"`
	ProviderName  string                   `json:"providerName"`
	PromptID      string                   `json:"promptId"`
	PromptName    string                   `json:"promptName"`
}

func (r Request) codeFiles() []providers.CodeFile {
	files := make([]providers.CodeFile, len(r.Files))
	for i, f := range r.Files {
		files[i] = providers.CodeFile{Name: f.Name, Language: f.Language, Content: f.Content}
	}
	return files
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return sf.Name
		}
		return name
	})
	return v
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Request.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param()))
		case "max":
			if fe.Kind() == reflect.Slice {
				msgs = append(msgs, fmt.Sprintf("%s must contain at most %s items", field, fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
			}
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return apperr.Validation(strings.Join(msgs, "; "))
}
