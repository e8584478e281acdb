package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_gateway/internal/models"
)

func TestSeedPrompts(t *testing.T) {
	repo := NewPromptRepository(newTestDB(t))
	ctx := context.Background()

	n, err := SeedPrompts(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	def, err := repo.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultPromptID, def.ID)
	assert.Equal(t, "Code Review", def.Name)

	n, err = SeedPrompts(ctx, repo)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeedPrompts_KeepsExistingDefault(t *testing.T) {
	repo := NewPromptRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Prompt{ID: "mine", Name: "Mine", Content: "x", IsDefault: true}))

	n, err := SeedPrompts(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	def, err := repo.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mine", def.ID)
}
