package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"review_gateway/internal/models"
)

const providerColumns = `id, name, kind, encrypted_api_key, endpoint, deployment, model,
		       password_hash, is_active, created_at, updated_at`

// ProviderRepository handles provider database operations
type ProviderRepository struct {
	db *DB
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db *DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// GetByID retrieves a provider by ID
func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProviderRecord, error) {
	var provider models.ProviderRecord
	query := r.db.rebind(`SELECT ` + providerColumns + ` FROM ai_providers WHERE id = ?`)

	err := r.db.conn.GetContext(ctx, &provider, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	return &provider, nil
}

// FindActive returns the single active provider
func (r *ProviderRepository) FindActive(ctx context.Context) (*models.ProviderRecord, error) {
	var provider models.ProviderRecord
	query := r.db.rebind(`SELECT ` + providerColumns + ` FROM ai_providers WHERE is_active = ? LIMIT 1`)

	err := r.db.conn.GetContext(ctx, &provider, query, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveProvider
		}
		return nil, fmt.Errorf("failed to get active provider: %w", err)
	}

	return &provider, nil
}

// List returns all providers, active first then newest first
func (r *ProviderRepository) List(ctx context.Context) ([]*models.ProviderRecord, error) {
	query := `SELECT ` + providerColumns + ` FROM ai_providers ORDER BY is_active DESC, created_at DESC`

	var providers []*models.ProviderRecord
	if err := r.db.conn.SelectContext(ctx, &providers, query); err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	return providers, nil
}

// Count returns the number of registered providers
func (r *ProviderRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.conn.GetContext(ctx, &n, `SELECT COUNT(*) FROM ai_providers`); err != nil {
		return 0, fmt.Errorf("failed to count providers: %w", err)
	}
	return n, nil
}

// Create inserts a new provider. New providers are never active.
func (r *ProviderRepository) Create(ctx context.Context, provider *models.ProviderRecord) error {
	if provider.ID == uuid.Nil {
		provider.ID = uuid.New()
	}
	now := time.Now().UTC()
	provider.CreatedAt = now
	provider.UpdatedAt = now
	provider.IsActive = false

	query := r.db.rebind(`
		INSERT INTO ai_providers (
			id, name, kind, encrypted_api_key, endpoint, deployment, model,
			password_hash, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.conn.ExecContext(ctx, query,
		provider.ID, provider.Name, provider.Kind, provider.EncryptedAPIKey,
		provider.Endpoint, provider.Deployment, provider.Model, provider.PasswordHash,
		provider.IsActive, provider.CreatedAt, provider.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	return nil
}

// Update writes every mutable column of provider. The active flag is only
// changed through SetActive.
func (r *ProviderRepository) Update(ctx context.Context, provider *models.ProviderRecord) error {
	provider.UpdatedAt = time.Now().UTC()

	query := r.db.rebind(`
		UPDATE ai_providers
		SET name = ?, kind = ?, encrypted_api_key = ?, endpoint = ?, deployment = ?,
		    model = ?, password_hash = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.db.conn.ExecContext(ctx, query,
		provider.Name, provider.Kind, provider.EncryptedAPIKey, provider.Endpoint,
		provider.Deployment, provider.Model, provider.PasswordHash, provider.UpdatedAt,
		provider.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}

	return requireAffected(result, ErrProviderNotFound)
}

// ReplacePasswordHash swaps the stored hash only while it still equals
// oldHash. It reports whether a row changed.
func (r *ProviderRepository) ReplacePasswordHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) (bool, error) {
	query := r.db.rebind(`UPDATE ai_providers SET password_hash = ? WHERE id = ? AND password_hash = ?`)

	result, err := r.db.conn.ExecContext(ctx, query, newHash, id, oldHash)
	if err != nil {
		return false, fmt.Errorf("failed to replace password hash: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to replace password hash: %w", err)
	}
	return n > 0, nil
}

// Delete removes an inactive provider. Deleting the active one fails with
// ErrProviderActive.
func (r *ProviderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.conn.ExecContext(ctx,
		r.db.rebind(`DELETE FROM ai_providers WHERE id = ? AND is_active = ?`), id, false)
	if err != nil {
		return fmt.Errorf("failed to delete provider: %w", err)
	}

	err = requireAffected(result, ErrProviderNotFound)
	if !errors.Is(err, ErrProviderNotFound) {
		return err
	}

	// Nothing deleted: either missing or active.
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrProviderActive
}

// SetActive makes id the only active provider. Both steps run in one
// transaction so readers see either the old or the new active record.
func (r *ProviderRepository) SetActive(ctx context.Context, id uuid.UUID) (*models.ProviderRecord, error) {
	var activated models.ProviderRecord

	err := r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		if r.db.driver == DriverPostgres {
			// Serializes concurrent activations without blocking readers.
			if _, err := tx.ExecContext(ctx, `LOCK TABLE ai_providers IN SHARE ROW EXCLUSIVE MODE`); err != nil {
				return fmt.Errorf("failed to lock providers: %w", err)
			}
		}

		var exists int
		err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM ai_providers WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to check provider: %w", err)
		}
		if exists == 0 {
			return ErrProviderNotFound
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE ai_providers SET is_active = ?, updated_at = ? WHERE is_active = ? AND id <> ?`),
			false, now, true, id,
		); err != nil {
			return fmt.Errorf("failed to deactivate providers: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE ai_providers SET is_active = ?, updated_at = ? WHERE id = ?`),
			true, now, id,
		); err != nil {
			return fmt.Errorf("failed to activate provider: %w", err)
		}

		return tx.GetContext(ctx, &activated,
			tx.Rebind(`SELECT `+providerColumns+` FROM ai_providers WHERE id = ?`), id)
	})
	if err != nil {
		return nil, err
	}

	return &activated, nil
}

func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
