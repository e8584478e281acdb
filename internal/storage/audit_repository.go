package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"review_gateway/internal/models"
)

const insertAuditQuery = `
	INSERT INTO review_audits (
		id, provider_id, provider_kind, prompt_id, file_count,
		status, error_code, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// AuditRepository handles review audit database operations
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a new review audit repository
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a single audit record
func (r *AuditRepository) Create(ctx context.Context, audit *models.ReviewAudit) error {
	return insertAudit(ctx, r.db.conn, audit)
}

// CreateBatch inserts records in one transaction
func (r *AuditRepository) CreateBatch(ctx context.Context, audits []*models.ReviewAudit) error {
	return r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, audit := range audits {
			if err := insertAudit(ctx, tx, audit); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListRecent returns the newest audit records
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*models.ReviewAudit, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.rebind(`
		SELECT id, provider_id, provider_kind, prompt_id, file_count,
		       status, error_code, duration_ms, created_at
		FROM review_audits
		ORDER BY created_at DESC
		LIMIT ?
	`)

	var audits []*models.ReviewAudit
	if err := r.db.conn.SelectContext(ctx, &audits, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list review audits: %w", err)
	}
	return audits, nil
}

func insertAudit(ctx context.Context, ext sqlx.ExtContext, audit *models.ReviewAudit) error {
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now().UTC()
	}

	_, err := ext.ExecContext(ctx, ext.Rebind(insertAuditQuery),
		audit.ID, audit.ProviderID, audit.ProviderKind, audit.PromptID, audit.FileCount,
		audit.Status, audit.ErrorCode, audit.DurationMS, audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review audit: %w", err)
	}
	return nil
}
