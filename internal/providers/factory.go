package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"review_gateway/internal/models"
)

// Creator builds a client for one provider kind.
type Creator func(ctx context.Context, creds Credentials, opts Options) (ReviewClient, error)

// ClientFactory is what the review service depends on.
type ClientFactory interface {
	CreateClient(ctx context.Context, kind models.ProviderKind, creds Credentials) (ReviewClient, error)
}

// Factory maps provider kinds to constructors.
type Factory struct {
	mu       sync.RWMutex
	creators map[models.ProviderKind]Creator
	opts     Options
}

// NewFactory returns a factory with the built-in kinds registered.
func NewFactory(opts Options) *Factory {
	f := &Factory{
		creators: make(map[models.ProviderKind]Creator),
		opts:     opts,
	}

	f.Register(models.ProviderKindGemini, NewGeminiClient)
	f.Register(models.ProviderKindAzureOpenAI, NewAzureClient)
	f.Register(models.ProviderKindClaude, NewClaudeClient)

	return f
}

// Register sets the constructor for kind, replacing any existing one.
func (f *Factory) Register(kind models.ProviderKind, creator Creator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[kind] = creator
}

// CreateClient builds a client for kind. Errors never include the key.
func (f *Factory) CreateClient(ctx context.Context, kind models.ProviderKind, creds Credentials) (ReviewClient, error) {
	f.mu.RLock()
	creator, exists := f.creators[kind]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported provider kind: %s", kind)
	}

	client, err := creator(ctx, creds, f.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", kind, err)
	}
	return client, nil
}

// SupportedKinds returns the registered kinds, sorted.
func (f *Factory) SupportedKinds() []models.ProviderKind {
	f.mu.RLock()
	defer f.mu.RUnlock()

	kinds := make([]models.ProviderKind, 0, len(f.creators))
	for k := range f.creators {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
