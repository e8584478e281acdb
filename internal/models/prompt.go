package models

import "time"

// Prompt is a reusable review instruction.
type Prompt struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	Content     string    `db:"content" json:"content"`
	IsDefault   bool      `db:"is_default" json:"isDefault"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
