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

const promptColumns = `id, name, description, content, is_default, created_at, updated_at`

const defaultPromptCacheKey = "\x00default"

// PromptRepository handles prompt database operations. Reads go through
// the DB's prompt cache; writes invalidate it.
type PromptRepository struct {
	db *DB
}

// NewPromptRepository creates a new prompt repository
func NewPromptRepository(db *DB) *PromptRepository {
	return &PromptRepository{db: db}
}

// GetByID retrieves a prompt by ID
func (r *PromptRepository) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	if cached, ok := r.db.promptCache.Get(id); ok {
		return cached, nil
	}

	var prompt models.Prompt
	query := r.db.rebind(`SELECT ` + promptColumns + ` FROM prompts WHERE id = ?`)
	if err := r.db.conn.GetContext(ctx, &prompt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromptNotFound
		}
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}

	r.db.promptCache.Set(id, &prompt)
	return &prompt, nil
}

// GetDefault returns the prompt marked default
func (r *PromptRepository) GetDefault(ctx context.Context) (*models.Prompt, error) {
	if cached, ok := r.db.promptCache.Get(defaultPromptCacheKey); ok {
		return cached, nil
	}

	var prompt models.Prompt
	query := r.db.rebind(`SELECT ` + promptColumns + ` FROM prompts WHERE is_default = ? LIMIT 1`)
	if err := r.db.conn.GetContext(ctx, &prompt, query, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoDefaultPrompt
		}
		return nil, fmt.Errorf("failed to get default prompt: %w", err)
	}

	r.db.promptCache.Set(defaultPromptCacheKey, &prompt)
	return &prompt, nil
}

// List returns all prompts, default first then by name
func (r *PromptRepository) List(ctx context.Context) ([]*models.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts ORDER BY is_default DESC, name ASC`

	var prompts []*models.Prompt
	if err := r.db.conn.SelectContext(ctx, &prompts, query); err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	return prompts, nil
}

// Create inserts a prompt. A prompt created as default takes the default
// flag from any existing one.
func (r *PromptRepository) Create(ctx context.Context, prompt *models.Prompt) error {
	if prompt.ID == "" {
		prompt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	prompt.CreatedAt = now
	prompt.UpdatedAt = now

	err := r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		if prompt.IsDefault {
			if err := clearDefault(ctx, tx, now); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO prompts (id, name, description, content, is_default, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`), prompt.ID, prompt.Name, prompt.Description, prompt.Content, prompt.IsDefault, prompt.CreatedAt, prompt.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create prompt: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.db.promptCache.Clear()
	return nil
}

// SetDefault makes id the only default prompt
func (r *PromptRepository) SetDefault(ctx context.Context, id string) error {
	err := r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM prompts WHERE id = ?`), id); err != nil {
			return fmt.Errorf("failed to check prompt: %w", err)
		}
		if exists == 0 {
			return ErrPromptNotFound
		}

		now := time.Now().UTC()
		if err := clearDefault(ctx, tx, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE prompts SET is_default = ?, updated_at = ? WHERE id = ?`), true, now, id)
		if err != nil {
			return fmt.Errorf("failed to set default prompt: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.db.promptCache.Clear()
	return nil
}

// Delete removes a prompt
func (r *PromptRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.conn.ExecContext(ctx, r.db.rebind(`DELETE FROM prompts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	if err := requireAffected(result, ErrPromptNotFound); err != nil {
		return err
	}

	r.db.promptCache.Clear()
	return nil
}

func clearDefault(ctx context.Context, tx *sqlx.Tx, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE prompts SET is_default = ?, updated_at = ? WHERE is_default = ?`),
		false, now, true)
	if err != nil {
		return fmt.Errorf("failed to clear default prompt: %w", err)
	}
	return nil
}
