package httpapi

import (
	"context"
	"net/http"
	"time"

	"review_gateway/internal/metrics"
	"review_gateway/internal/middleware"
	"review_gateway/internal/models"
	"review_gateway/internal/providers"
	"review_gateway/internal/registry"
	"review_gateway/internal/review"
)

// Reviewer runs reviews.
type Reviewer interface {
	Execute(ctx context.Context, req review.Request) (*review.Result, error)
}

// PromptLister lists review prompts.
type PromptLister interface {
	List(ctx context.Context) ([]*models.Prompt, error)
}

// KindLister reports the provider kinds clients can be built for.
type KindLister interface {
	SupportedKinds() []models.ProviderKind
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Registry *registry.Service
	Reviews  Reviewer
	Prompts  PromptLister
	Metrics  metrics.Metrics

	// Available lists provider kinds configured through the environment.
	Available []providers.Available
	Kinds     KindLister

	// Health reports whether backing stores are reachable.
	Health func(ctx context.Context) error

	RequestTimeout time.Duration
}

// NewRouter returns the gateway's HTTP handler.
func NewRouter(deps *Dependencies) http.Handler {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoopMetrics()
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps)

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logging,
		middleware.Recover,
		middleware.Timeout(deps.RequestTimeout),
	)
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.Instrument(deps.Metrics, pattern, h))
	}

	handle("POST /api/review", deps.handleReview)

	handle("GET /api/ai-providers", deps.handleListProviders)
	handle("POST /api/ai-providers", deps.handleCreateProvider)
	handle("GET /api/ai-providers/available", deps.handleAvailableProviders)
	handle("GET /api/ai-providers/{id}", deps.handleGetProvider)
	handle("PUT /api/ai-providers/{id}", deps.handleUpdateProvider)
	handle("DELETE /api/ai-providers/{id}", deps.handleDeleteProvider)
	handle("POST /api/ai-providers/{id}/activate", deps.handleActivateProvider)
	handle("POST /api/ai-providers/{id}/verify-password", deps.handleVerifyPassword)

	handle("GET /api/prompts", deps.handleListPrompts)

	mux.HandleFunc("GET /health", deps.handleHealth)
	mux.Handle("GET /metrics", deps.Metrics.HTTPHandler())
}

func (d *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	if d.Health != nil {
		if err := d.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("UNAVAILABLE"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
