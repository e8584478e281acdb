package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_gateway/internal/apperr"
	"review_gateway/internal/models"
	"review_gateway/internal/providers"
	"review_gateway/internal/storage"
	"review_gateway/internal/vault"
)

func newTestService(t *testing.T) (*Service, *storage.ProviderRepository) {
	t.Helper()

	cfg := storage.DefaultDBConfig()
	cfg.DSN = "file:" + filepath.Join(t.TempDir(), "registry.db") + "?_pragma=busy_timeout(5000)"
	db, err := storage.NewDB(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	key, err := vault.GenerateKey()
	require.NoError(t, err)
	v, err := vault.NewFromHex(key)
	require.NoError(t, err)

	repo := db.NewProviderRepository()
	return NewService(repo, v), repo
}

func geminiInput(name string) CreateInput {
	return CreateInput{Name: name, Kind: models.ProviderKindGemini, APIKey: "AIza-test-key-123"}
}

func TestService_CreateEncryptsAndHashes(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	in := geminiInput("  Team Gemini  ")
	in.Password = "s3cret"
	item, err := svc.Create(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "Team Gemini", item.Name)
	assert.False(t, item.IsActive)
	assert.True(t, item.HasPassword)

	rec, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "AIza-test-key-123", rec.EncryptedAPIKey)
	assert.NotEqual(t, "s3cret", *rec.PasswordHash)

	key, err := svc.DecryptAPIKey(rec)
	require.NoError(t, err)
	assert.Equal(t, "AIza-test-key-123", key)
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name string
		in   CreateInput
		want string
	}{
		{"blank name", CreateInput{Name: "   ", Kind: models.ProviderKindGemini, APIKey: "k"}, "name"},
		{"long name", CreateInput{Name: string(long), Kind: models.ProviderKindGemini, APIKey: "k"}, "name"},
		{"bad kind", CreateInput{Name: "x", Kind: "openrouter", APIKey: "k"}, "provider"},
		{"no key", CreateInput{Name: "x", Kind: models.ProviderKindClaude}, "apiKey"},
		{"bad endpoint", CreateInput{Name: "x", Kind: models.ProviderKindClaude, APIKey: "k", Endpoint: "not a url"}, "endpoint"},
		{"short password", CreateInput{Name: "x", Kind: models.ProviderKindClaude, APIKey: "k", Password: "abc"}, "password"},
		{"azure without deployment", CreateInput{Name: "x", Kind: models.ProviderKindAzureOpenAI, APIKey: "k", Endpoint: "https://a.openai.azure.com"}, "deployment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation), err.Error())
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestService_CreateWithoutKey(t *testing.T) {
	svc, _ := newTestService(t)
	v, err := vault.New(nil)
	require.NoError(t, err)
	svc.cipher = v

	_, err = svc.Create(context.Background(), geminiInput("x"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestService_UpdateFieldSemantics(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	in := CreateInput{
		Name:     "Claude",
		Kind:     models.ProviderKindClaude,
		APIKey:   "sk-ant-original",
		Model:    "claude-3-5-sonnet-20241022",
		Endpoint: "https://proxy.example.com",
		Password: "hunter2",
	}
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)
	id := created.ID.String()

	// Omitted fields stay, null clears, values replace.
	var upd UpdateInput
	require.NoError(t, json.Unmarshal([]byte(`{"endpoint": null, "model": "claude-3-haiku-20240307"}`), &upd))
	item, err := svc.Update(ctx, id, upd)
	require.NoError(t, err)
	assert.Equal(t, "Claude", item.Name)
	assert.Nil(t, item.Endpoint)
	assert.Equal(t, "claude-3-haiku-20240307", models.StringValue(item.Model))
	assert.True(t, item.HasPassword)

	rec, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	key, err := svc.DecryptAPIKey(rec)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-original", key)

	// New key re-encrypts.
	_, err = svc.Update(ctx, id, UpdateInput{APIKey: Value("sk-ant-rotated")})
	require.NoError(t, err)
	rec, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	key, err = svc.DecryptAPIKey(rec)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-rotated", key)

	// New password re-hashes.
	_, err = svc.Update(ctx, id, UpdateInput{Password: Value("newpass")})
	require.NoError(t, err)
	ok, err := svc.VerifyPassword(ctx, id, "newpass")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.VerifyPassword(ctx, id, "hunter2")
	require.NoError(t, err)
	assert.False(t, ok)

	// Empty password clears the gate.
	item, err = svc.Update(ctx, id, UpdateInput{Password: Value("")})
	require.NoError(t, err)
	assert.False(t, item.HasPassword)
	assert.NoError(t, svc.Authorize(ctx, id, ""))
}

func TestService_UpdateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, geminiInput("g"))
	require.NoError(t, err)
	id := created.ID.String()

	_, err = svc.Update(ctx, id, UpdateInput{Name: Value("  ")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Update(ctx, id, UpdateInput{Password: Value("ab")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Update(ctx, id, UpdateInput{Endpoint: Value("nope")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	// Switching to azure requires its fields.
	_, err = svc.Update(ctx, id, UpdateInput{Kind: Value("azure-openai")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	item, err := svc.Update(ctx, id, UpdateInput{
		Kind:       Value("azure-openai"),
		Endpoint:   Value("https://x.openai.azure.com"),
		Deployment: Value("gpt-4o"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProviderKindAzureOpenAI, item.Kind)

	_, err = svc.Update(ctx, "5b7f7c8e-0000-4000-8000-000000000000", UpdateInput{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_ActivateIsSingleWinner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, geminiInput("a"))
	require.NoError(t, err)
	b, err := svc.Create(ctx, geminiInput("b"))
	require.NoError(t, err)

	for _, id := range []string{a.ID.String(), b.ID.String(), a.ID.String()} {
		_, err := svc.Activate(ctx, id)
		require.NoError(t, err)
	}

	items, err := svc.List(ctx)
	require.NoError(t, err)
	active := 0
	for _, it := range items {
		if it.IsActive {
			active++
			assert.Equal(t, a.ID, it.ID)
		}
	}
	assert.Equal(t, 1, active)

	rec, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, a.ID, rec.ID)

	_, err = svc.Activate(ctx, "not-a-uuid")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_DeleteGuard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, geminiInput("a"))
	require.NoError(t, err)
	b, err := svc.Create(ctx, geminiInput("b"))
	require.NoError(t, err)
	_, err = svc.Activate(ctx, a.ID.String())
	require.NoError(t, err)

	err = svc.Delete(ctx, a.ID.String())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBusiness))
	assert.Equal(t, apperr.CodeDeleteActiveProvider, apperr.CodeOf(err))

	require.NoError(t, svc.Delete(ctx, b.ID.String()))
	_, err = svc.Get(ctx, b.ID.String())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = svc.Delete(ctx, b.ID.String())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_ResolveWithoutActive(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Resolve(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
	assert.Equal(t, apperr.CodeNoActiveProvider, apperr.CodeOf(err))

	_, err = svc.Resolve(context.Background(), "7d0e1a8c-1111-4222-8333-444455556666")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCheckPassword(t *testing.T) {
	hash, err := vault.HashPassword("abc123")
	require.NoError(t, err)
	gated := &models.ProviderRecord{PasswordHash: &hash}

	assert.True(t, apperr.Is(CheckPassword(gated, ""), apperr.KindPasswordRequired))
	assert.True(t, apperr.Is(CheckPassword(gated, "wrong"), apperr.KindUnauthorized))
	assert.NoError(t, CheckPassword(gated, "abc123"))
	assert.NoError(t, CheckPassword(&models.ProviderRecord{}, ""))
}

func TestService_VerifyPasswordUpgradesLegacyHash(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	in := geminiInput("legacy")
	in.Password = "abc123"
	item, err := svc.Create(ctx, in)
	require.NoError(t, err)

	rec, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	sum := sha256.Sum256([]byte("abc123"))
	legacy := hex.EncodeToString(sum[:])
	ok, err := repo.ReplacePasswordHash(ctx, item.ID, *rec.PasswordHash, legacy)
	require.NoError(t, err)
	require.True(t, ok)

	valid, err := svc.VerifyPassword(ctx, item.ID.String(), "wrong")
	require.NoError(t, err)
	assert.False(t, valid)
	rec, err = repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, legacy, *rec.PasswordHash)

	valid, err = svc.VerifyPassword(ctx, item.ID.String(), "abc123")
	require.NoError(t, err)
	assert.True(t, valid)
	rec, err = repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(*rec.PasswordHash, "$argon2id$"))

	require.NoError(t, svc.Authorize(ctx, item.ID.String(), "abc123"))
}

func TestService_Bootstrap(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	available := providers.AvailableFromEnv(providers.EnvCredentials{
		GeminiAPIKey:    "g-key",
		AnthropicAPIKey: "c-key",
	})

	n, err := svc.Bootstrap(ctx, available)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	active, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderKindGemini, active.Kind)

	// Second run is a no-op.
	n, err = svc.Bootstrap(ctx, available)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpdateInput_JSONPresence(t *testing.T) {
	var in UpdateInput
	require.NoError(t, json.Unmarshal([]byte(`{"name":"n","deployment":null,"password":""}`), &in))

	assert.True(t, in.Name.Set)
	assert.Equal(t, "n", in.Name.Value)
	assert.True(t, in.Deployment.Set)
	assert.True(t, in.Deployment.Null)
	assert.True(t, in.Password.Cleared())
	assert.False(t, in.Model.Set)
	assert.False(t, in.APIKey.Set)
}
