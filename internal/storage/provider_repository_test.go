package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_gateway/internal/models"
)

func createProvider(t *testing.T, repo *ProviderRepository, name string) *models.ProviderRecord {
	t.Helper()
	p := &models.ProviderRecord{
		Name:            name,
		Kind:            models.ProviderKindGemini,
		EncryptedAPIKey: "00112233445566778899aabb:cafe",
		Model:           models.OptionalString("gemini-1.5-flash"),
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func countActive(t *testing.T, repo *ProviderRepository) int {
	t.Helper()
	all, err := repo.List(context.Background())
	require.NoError(t, err)
	n := 0
	for _, p := range all {
		if p.IsActive {
			n++
		}
	}
	return n
}

func TestProviderRepository_CreateGet(t *testing.T) {
	repo := NewProviderRepository(newTestDB(t))
	ctx := context.Background()

	p := createProvider(t, repo, "Gemini dev")
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.False(t, p.IsActive)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gemini dev", got.Name)
	assert.Equal(t, models.ProviderKindGemini, got.Kind)
	assert.Equal(t, "gemini-1.5-flash", models.StringValue(got.Model))
	assert.Nil(t, got.Endpoint)
	assert.Nil(t, got.PasswordHash)
	assert.False(t, got.IsActive)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestProviderRepository_Update(t *testing.T) {
	repo := NewProviderRepository(newTestDB(t))
	ctx := context.Background()

	p := createProvider(t, repo, "before")
	hash := "hash"
	p.Name = "after"
	p.PasswordHash = &hash
	p.Model = nil
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
	assert.True(t, got.HasPassword())
	assert.Nil(t, got.Model)

	err = repo.Update(ctx, &models.ProviderRecord{ID: uuid.New(), Kind: models.ProviderKindGemini})
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestProviderRepository_SetActiveSingleWinner(t *testing.T) {
	repo := NewProviderRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.FindActive(ctx)
	assert.ErrorIs(t, err, ErrNoActiveProvider)

	a := createProvider(t, repo, "a")
	b := createProvider(t, repo, "b")
	c := createProvider(t, repo, "c")

	for _, target := range []*models.ProviderRecord{a, b, c, a, a, c} {
		activated, err := repo.SetActive(ctx, target.ID)
		require.NoError(t, err)
		assert.True(t, activated.IsActive)

		active, err := repo.FindActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, target.ID, active.ID)
		assert.Equal(t, 1, countActive(t, repo))
	}

	_, err = repo.SetActive(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrProviderNotFound)

	active, err := repo.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.ID, active.ID)
}

func TestProviderRepository_SetActiveConcurrent(t *testing.T) {
	repo := NewProviderRepository(newTestDB(t))
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, createProvider(t, repo, "p").ID)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := repo.SetActive(ctx, id)
			assert.NoError(t, err)
		}(ids[i%len(ids)])
	}
	wg.Wait()

	assert.Equal(t, 1, countActive(t, repo))
}

func TestProviderRepository_ListOrder(t *testing.T) {
	repo := NewProviderRepository(newTestDB(t))
	ctx := context.Background()

	first := createProvider(t, repo, "first")
	createProvider(t, repo, "second")
	third := createProvider(t, repo, "third")

	_, err := repo.SetActive(ctx, first.ID)
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, third.ID, list[1].ID)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestProviderRepository_Delete(t *testing.T) {
	repo := NewProviderRepository(newTestDB(t))
	ctx := context.Background()

	p := createProvider(t, repo, "gone")
	require.NoError(t, repo.Delete(ctx, p.ID))

	_, err := repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProviderNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), ErrProviderNotFound)
}

func TestProviderRepository_DeleteActive(t *testing.T) {
	repo := NewProviderRepository(newTestDB(t))
	ctx := context.Background()

	p := createProvider(t, repo, "default")
	_, err := repo.SetActive(ctx, p.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Delete(ctx, p.ID), ErrProviderActive)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}
