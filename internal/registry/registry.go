// Package registry manages registered AI providers: validation, encryption of
// API keys, the password gate and the single active provider.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"review_gateway/internal/apperr"
	"review_gateway/internal/logging"
	"review_gateway/internal/models"
	"review_gateway/internal/storage"
	"review_gateway/internal/vault"
)

// Store persists provider records.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProviderRecord, error)
	FindActive(ctx context.Context) (*models.ProviderRecord, error)
	List(ctx context.Context) ([]*models.ProviderRecord, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, provider *models.ProviderRecord) error
	Update(ctx context.Context, provider *models.ProviderRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID) (*models.ProviderRecord, error)
	ReplacePasswordHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) (bool, error)
}

// Cipher encrypts API keys at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(record string) (string, error)
}

// Service is the provider registry.
type Service struct {
	store    Store
	cipher   Cipher
	validate *validator.Validate
	log      *logging.Logger
}

func NewService(store Store, cipher Cipher) *Service {
	return &Service{
		store:    store,
		cipher:   cipher,
		validate: newValidator(),
		log:      logging.With("registry"),
	}
}

// List returns every provider, active first.
func (s *Service) List(ctx context.Context) ([]models.ProviderListItem, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to list AI providers", err)
	}

	items := make([]models.ProviderListItem, len(records))
	for i, r := range records {
		items[i] = r.ListItem()
	}
	return items, nil
}

// Count returns the number of registered providers.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, apperr.Internal("Failed to count AI providers", err)
	}
	return n, nil
}

// Get returns one provider without secrets.
func (s *Service) Get(ctx context.Context, id string) (*models.ProviderListItem, error) {
	rec, err := s.record(ctx, id)
	if err != nil {
		return nil, err
	}
	item := rec.ListItem()
	return &item, nil
}

// Resolve returns the record for id, or the active record when id is empty.
func (s *Service) Resolve(ctx context.Context, id string) (*models.ProviderRecord, error) {
	if strings.TrimSpace(id) != "" {
		return s.record(ctx, id)
	}

	rec, err := s.store.FindActive(ctx)
	if errors.Is(err, storage.ErrNoActiveProvider) {
		return nil, apperr.Configuration(apperr.CodeNoActiveProvider, "No default AI provider is configured")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to resolve the active AI provider", err)
	}
	return rec, nil
}

// Create validates input, encrypts the API key and hashes the password. New
// providers are never active.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.ProviderListItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Kind = models.ProviderKind(strings.ToLower(strings.TrimSpace(string(in.Kind))))
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if err := requireKindFields(in.Kind, in.Endpoint, in.Deployment); err != nil {
		return nil, err
	}

	encrypted, err := s.cipher.Encrypt(in.APIKey)
	if err != nil {
		return nil, err
	}

	rec := &models.ProviderRecord{
		ID:              uuid.New(),
		Name:            in.Name,
		Kind:            in.Kind,
		EncryptedAPIKey: encrypted,
		Endpoint:        models.OptionalString(in.Endpoint),
		Deployment:      models.OptionalString(in.Deployment),
		Model:           models.OptionalString(in.Model),
	}
	if in.Password != "" {
		hash, err := vault.HashPassword(in.Password)
		if err != nil {
			return nil, apperr.Internal("Failed to hash password", err)
		}
		rec.PasswordHash = &hash
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, apperr.Internal("Failed to create AI provider", err)
	}

	s.log.Info("provider created", "provider_id", rec.ID.String(), "kind", rec.Kind.String(), "gated", rec.HasPassword())
	item := rec.ListItem()
	return &item, nil
}

// Update applies in to the provider. A new API key is re-encrypted, a new
// password re-hashed, and a cleared password removes the gate.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.ProviderListItem, error) {
	rec, err := s.record(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name.Set {
		name := strings.TrimSpace(in.Name.Value)
		if err := s.validate.Var(name, "required,max=100"); err != nil {
			return nil, apperr.Validation("name must be 1 to 100 characters")
		}
		rec.Name = name
	}

	if in.Kind.Set {
		kind, err := models.ParseProviderKind(in.Kind.Value)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("provider must be one of %s", kindList()))
		}
		rec.Kind = kind
	}

	if in.APIKey.Set && !in.APIKey.Cleared() {
		encrypted, err := s.cipher.Encrypt(in.APIKey.Value)
		if err != nil {
			return nil, err
		}
		rec.EncryptedAPIKey = encrypted
	}

	if in.Endpoint.Set {
		if !in.Endpoint.Cleared() {
			if err := s.validate.Var(in.Endpoint.Value, "url"); err != nil {
				return nil, apperr.Validation("endpoint must be a valid URL")
			}
		}
		rec.Endpoint = models.OptionalString(in.Endpoint.Value)
	}
	if in.Deployment.Set {
		rec.Deployment = models.OptionalString(in.Deployment.Value)
	}
	if in.Model.Set {
		rec.Model = models.OptionalString(in.Model.Value)
	}

	if in.Password.Set {
		if in.Password.Cleared() {
			rec.PasswordHash = nil
		} else {
			if err := s.validate.Var(in.Password.Value, "min=4"); err != nil {
				return nil, apperr.Validation("password must be at least 4 characters")
			}
			hash, err := vault.HashPassword(in.Password.Value)
			if err != nil {
				return nil, apperr.Internal("Failed to hash password", err)
			}
			rec.PasswordHash = &hash
		}
	}

	if err := requireKindFields(rec.Kind, models.StringValue(rec.Endpoint), models.StringValue(rec.Deployment)); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrProviderNotFound) {
			return nil, providerNotFound()
		}
		return nil, apperr.Internal("Failed to update AI provider", err)
	}

	s.log.Info("provider updated", "provider_id", rec.ID.String(), "gated", rec.HasPassword())
	item := rec.ListItem()
	return &item, nil
}

// Delete removes a provider. The active provider cannot be deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.store.Delete(ctx, uid)
	switch {
	case errors.Is(err, storage.ErrProviderNotFound):
		return providerNotFound()
	case errors.Is(err, storage.ErrProviderActive):
		return apperr.Business(apperr.CodeDeleteActiveProvider,
			"The active AI provider cannot be deleted. Activate another provider first.")
	case err != nil:
		return apperr.Internal("Failed to delete AI provider", err)
	}

	s.log.Info("provider deleted", "provider_id", id)
	return nil
}

// Activate makes id the only active provider.
func (s *Service) Activate(ctx context.Context, id string) (*models.ProviderListItem, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.SetActive(ctx, uid)
	if errors.Is(err, storage.ErrProviderNotFound) {
		return nil, providerNotFound()
	}
	if err != nil {
		return nil, apperr.Internal("Failed to activate AI provider", err)
	}

	s.log.Info("provider activated", "provider_id", id)
	item := rec.ListItem()
	return &item, nil
}

// VerifyPassword reports whether password unlocks the provider. Providers
// without a password accept any input.
func (s *Service) VerifyPassword(ctx context.Context, id, password string) (bool, error) {
	rec, err := s.record(ctx, id)
	if err != nil {
		return false, err
	}
	if CheckPassword(rec, password) != nil {
		return false, nil
	}
	s.upgradeHash(ctx, rec, password)
	return true, nil
}

// Authorize fails with PasswordRequired or Unauthorized when the provider is
// gated and password does not unlock it.
func (s *Service) Authorize(ctx context.Context, id, password string) error {
	rec, err := s.record(ctx, id)
	if err != nil {
		return err
	}
	if err := CheckPassword(rec, password); err != nil {
		return err
	}
	s.upgradeHash(ctx, rec, password)
	return nil
}

// upgradeHash re-hashes a verified password stored in a legacy format.
// Failures leave the old hash in place.
func (s *Service) upgradeHash(ctx context.Context, rec *models.ProviderRecord, password string) {
	if !rec.HasPassword() || !vault.NeedsRehash(*rec.PasswordHash) {
		return
	}
	hash, err := vault.HashPassword(password)
	if err != nil {
		s.log.Warn("password rehash failed", "provider_id", rec.ID.String(), "error", err)
		return
	}
	ok, err := s.store.ReplacePasswordHash(ctx, rec.ID, *rec.PasswordHash, hash)
	if err != nil {
		s.log.Warn("password rehash failed", "provider_id", rec.ID.String(), "error", err)
		return
	}
	if ok {
		rec.PasswordHash = &hash
		s.log.Info("password hash upgraded", "provider_id", rec.ID.String())
	}
}

// CheckPassword applies the password gate to rec.
func CheckPassword(rec *models.ProviderRecord, password string) error {
	if !rec.HasPassword() {
		return nil
	}
	if password == "" {
		return apperr.PasswordRequired()
	}
	if !vault.VerifyPassword(password, *rec.PasswordHash) {
		return apperr.Unauthorized()
	}
	return nil
}

// DecryptAPIKey returns the plaintext key for rec.
func (s *Service) DecryptAPIKey(rec *models.ProviderRecord) (string, error) {
	return s.cipher.Decrypt(rec.EncryptedAPIKey)
}

func (s *Service) record(ctx context.Context, id string) (*models.ProviderRecord, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.GetByID(ctx, uid)
	if errors.Is(err, storage.ErrProviderNotFound) {
		return nil, providerNotFound()
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load AI provider", err)
	}
	return rec, nil
}

// parseID treats malformed ids as unknown providers.
func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, providerNotFound()
	}
	return uid, nil
}

func providerNotFound() error {
	return apperr.NotFound(apperr.CodeProviderNotFound, "AI provider not found")
}

func requireKindFields(kind models.ProviderKind, endpoint, deployment string) error {
	if kind != models.ProviderKindAzureOpenAI {
		return nil
	}
	var missing []string
	if endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if deployment == "" {
		missing = append(missing, "deployment")
	}
	if len(missing) > 0 {
		return apperr.Validation(fmt.Sprintf("%s requires %s", kind.DisplayName(), strings.Join(missing, " and ")))
	}
	return nil
}
