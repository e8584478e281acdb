package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProviderKind enumerates supported review backends.
type ProviderKind string

const (
	ProviderKindGemini      ProviderKind = "gemini"
	ProviderKindAzureOpenAI ProviderKind = "azure-openai"
	ProviderKindClaude      ProviderKind = "claude"
)

// ProviderKinds lists every supported kind in display order.
var ProviderKinds = []ProviderKind{ProviderKindGemini, ProviderKindAzureOpenAI, ProviderKindClaude}

// ParseProviderKind validates a wire name.
func ParseProviderKind(s string) (ProviderKind, error) {
	k := ProviderKind(strings.ToLower(strings.TrimSpace(s)))
	if k.Valid() {
		return k, nil
	}
	return "", fmt.Errorf("unknown provider kind %q", s)
}

func (k ProviderKind) Valid() bool {
	for _, known := range ProviderKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k ProviderKind) String() string { return string(k) }

// DisplayName is the human label for a kind.
func (k ProviderKind) DisplayName() string {
	switch k {
	case ProviderKindGemini:
		return "Google Gemini"
	case ProviderKindAzureOpenAI:
		return "Azure OpenAI"
	case ProviderKindClaude:
		return "Anthropic Claude"
	}
	return string(k)
}

// ProviderRecord is a registered provider with its credentials. The encrypted
// key and password hash never leave the core; use ListItem for callers.
type ProviderRecord struct {
	ID              uuid.UUID    `db:"id"`
	Name            string       `db:"name"`
	Kind            ProviderKind `db:"kind"`
	EncryptedAPIKey string       `db:"encrypted_api_key"`
	Endpoint        *string      `db:"endpoint"`
	Deployment      *string      `db:"deployment"`
	Model           *string      `db:"model"`
	PasswordHash    *string      `db:"password_hash"`
	IsActive        bool         `db:"is_active"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

// HasPassword reports whether the record is password-gated.
func (p *ProviderRecord) HasPassword() bool {
	return p.PasswordHash != nil && *p.PasswordHash != ""
}

// ListItem strips secrets from the record.
func (p *ProviderRecord) ListItem() ProviderListItem {
	return ProviderListItem{
		ID:          p.ID,
		Name:        p.Name,
		Kind:        p.Kind,
		Endpoint:    p.Endpoint,
		Deployment:  p.Deployment,
		Model:       p.Model,
		IsActive:    p.IsActive,
		HasPassword: p.HasPassword(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ProviderListItem is the secret-free view of a ProviderRecord.
type ProviderListItem struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Kind        ProviderKind `json:"provider"`
	Endpoint    *string      `json:"endpoint"`
	Deployment  *string      `json:"deployment"`
	Model       *string      `json:"model"`
	IsActive    bool         `json:"isActive"`
	HasPassword bool         `json:"hasPassword"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// StringValue dereferences an optional column.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OptionalString returns nil for an empty string.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
