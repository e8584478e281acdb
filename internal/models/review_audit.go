package models

import (
	"time"

	"github.com/google/uuid"
)

// Review outcome statuses.
const (
	ReviewStatusSucceeded = "succeeded"
	ReviewStatusFailed    = "failed"
)

// ReviewAudit records the outcome of one review. It never holds file
// contents or secrets.
type ReviewAudit struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	ProviderID   uuid.UUID    `db:"provider_id" json:"provider_id"`
	ProviderKind ProviderKind `db:"provider_kind" json:"provider_kind"`
	PromptID     string       `db:"prompt_id" json:"prompt_id"`
	FileCount    int          `db:"file_count" json:"file_count"`
	Status       string       `db:"status" json:"status"`
	ErrorCode    string       `db:"error_code" json:"error_code"`
	DurationMS   int64        `db:"duration_ms" json:"duration_ms"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}
