// Package review runs code reviews: it resolves the provider and prompt,
// applies the password gate, builds a provider client and classifies
// provider failures into stable application errors.
package review

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"review_gateway/internal/apperr"
	"review_gateway/internal/logging"
	"review_gateway/internal/metrics"
	"review_gateway/internal/models"
	"review_gateway/internal/providers"
	"review_gateway/internal/ratelimit"
	"review_gateway/internal/registry"
	"review_gateway/internal/storage"
)

var tracer = otel.Tracer("review_gateway/review")

// ProviderResolver finds provider records and decrypts their keys.
type ProviderResolver interface {
	Resolve(ctx context.Context, id string) (*models.ProviderRecord, error)
	DecryptAPIKey(rec *models.ProviderRecord) (string, error)
}

// PromptLookup finds review prompts.
type PromptLookup interface {
	GetByID(ctx context.Context, id string) (*models.Prompt, error)
	GetDefault(ctx context.Context) (*models.Prompt, error)
}

// AuditSink receives one record per review outcome.
type AuditSink interface {
	Enqueue(ctx context.Context, audit *models.ReviewAudit) error
}

// DefaultAuditTimeout bounds how long a review waits to enqueue its audit.
const DefaultAuditTimeout = time.Second

// Config wires a Service. Limiter, Audits and Metrics are optional.
type Config struct {
	Providers ProviderResolver
	Prompts   PromptLookup
	Factory   providers.ClientFactory
	Limiter   ratelimit.Limiter
	Audits    AuditSink
	Metrics   metrics.Metrics

	// AuditTimeout defaults to DefaultAuditTimeout. Audits that cannot be
	// enqueued in time are dropped.
	AuditTimeout time.Duration
}

// Service is the review orchestrator.
type Service struct {
	providers ProviderResolver
	prompts   PromptLookup
	factory   providers.ClientFactory
	limiter   ratelimit.Limiter
	audits    AuditSink
	metrics   metrics.Metrics
	auditWait time.Duration
	validate  *validator.Validate
	log       *logging.Logger
	now       func() time.Time
}

func NewService(cfg Config) *Service {
	s := &Service{
		providers: cfg.Providers,
		prompts:   cfg.Prompts,
		factory:   cfg.Factory,
		limiter:   cfg.Limiter,
		audits:    cfg.Audits,
		metrics:   cfg.Metrics,
		auditWait: cfg.AuditTimeout,
		validate:  newValidator(),
		log:       logging.With("review"),
		now:       time.Now,
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewNoopLimiter()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNoopMetrics()
	}
	if s.auditWait <= 0 {
		s.auditWait = DefaultAuditTimeout
	}
	return s
}

// Execute reviews every file in req with a single provider. Either all files
// are returned or the call fails.
func (s *Service) Execute(ctx context.Context, req Request) (result *Result, err error) {
	ctx, span := tracer.Start(ctx, "review.Execute")
	defer span.End()
	span.SetAttributes(attribute.Int("files.count", len(req.Files)))

	start := s.now()

	if err := s.validate.Struct(req); err != nil {
		verr := validationError(err)
		span.SetStatus(codes.Error, apperr.CodeValidation)
		return nil, verr
	}

	rec, err := s.providers.Resolve(ctx, req.ProviderID)
	if err != nil {
		span.SetStatus(codes.Error, apperr.CodeOf(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("provider.kind", rec.Kind.String()))

	var promptID string
	defer func() {
		s.finish(ctx, rec, promptID, len(req.Files), start, err)
		if err != nil {
			span.SetAttributes(attribute.String("error.code", apperr.CodeOf(err)))
			span.SetStatus(codes.Error, apperr.CodeOf(err))
		}
	}()

	if err := registry.CheckPassword(rec, req.Password); err != nil {
		return nil, err
	}

	if err := s.checkRate(ctx, rec); err != nil {
		return nil, err
	}

	prompt, err := s.resolvePrompt(ctx, req.PromptID)
	if err != nil {
		return nil, err
	}
	promptID = prompt.ID

	apiKey, err := s.providers.DecryptAPIKey(rec)
	if err != nil {
		s.log.Error("failed to decrypt provider key", "provider_id", rec.ID.String(), "code", apperr.CodeOf(err))
		return nil, err
	}

	client, err := s.factory.CreateClient(ctx, rec.Kind, providers.Credentials{
		APIKey:     apiKey,
		Endpoint:   models.StringValue(rec.Endpoint),
		Deployment: models.StringValue(rec.Deployment),
		Model:      models.StringValue(rec.Model),
	})
	if err != nil {
		s.log.Warn("failed to create provider client", "provider_id", rec.ID.String(), "kind", rec.Kind.String(),
			"code", apperr.CodeOf(err))
		return nil, apperr.ClientInitialization(rec.Kind.DisplayName(), err)
	}
	if closer, ok := client.(io.Closer); ok {
		defer closer.Close()
	}

	reviewed, err := client.Review(ctx, req.codeFiles(), prompt.Content)
	if err != nil {
		classified := classify(err)
		s.log.Warn("review failed", "provider_id", rec.ID.String(), "kind", rec.Kind.String(),
			"code", apperr.CodeOf(classified), "provider_error", providers.KindOf(err).String())
		return nil, classified
	}

	return &Result{
		ReviewedFiles: reviewed,
		Provider:      rec.Kind,
		ProviderName:  rec.Name,
		PromptID:      prompt.ID,
		PromptName:    prompt.Name,
	}, nil
}

func (s *Service) resolvePrompt(ctx context.Context, id string) (*models.Prompt, error) {
	if id != "" {
		prompt, err := s.prompts.GetByID(ctx, id)
		if errors.Is(err, storage.ErrPromptNotFound) {
			return nil, apperr.NotFound(apperr.CodePromptNotFound, "Prompt not found")
		}
		if err != nil {
			return nil, apperr.Internal("Failed to load prompt", err)
		}
		return prompt, nil
	}

	prompt, err := s.prompts.GetDefault(ctx)
	if errors.Is(err, storage.ErrNoDefaultPrompt) {
		return nil, apperr.Configuration(apperr.CodeDefaultPromptNotSet, "No default prompt is configured")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load default prompt", err)
	}
	return prompt, nil
}

func (s *Service) checkRate(ctx context.Context, rec *models.ProviderRecord) error {
	allowed, err := s.limiter.Allow(ctx, ratelimit.ProviderKey(rec.ID.String()))
	if err != nil {
		// Limiter outages do not block reviews.
		s.log.Warn("rate limit check failed", "provider_id", rec.ID.String(), "error", err)
		return nil
	}
	if !allowed {
		return apperr.RateLimited(nil)
	}
	return nil
}

// classify maps a provider failure onto the review error taxonomy.
func classify(err error) error {
	switch providers.KindOf(err) {
	case providers.ErrorKindTimeout:
		return apperr.ReviewTimeout(err)
	case providers.ErrorKindRateLimited:
		return apperr.RateLimited(err)
	}
	return apperr.ReviewFailed(err)
}

func (s *Service) finish(ctx context.Context, rec *models.ProviderRecord, promptID string, files int, start time.Time, err error) {
	elapsed := s.now().Sub(start)

	status, code := models.ReviewStatusSucceeded, ""
	if err != nil {
		status, code = models.ReviewStatusFailed, apperr.CodeOf(err)
	}

	metricStatus := "ok"
	if code != "" {
		metricStatus = code
	}
	s.metrics.RecordReview(rec.Kind.String(), metricStatus, files, elapsed)

	if err == nil {
		s.log.Info("review completed", "provider_id", rec.ID.String(), "kind", rec.Kind.String(),
			"prompt_id", promptID, "files", files, "duration_ms", elapsed.Milliseconds())
	}

	if s.audits == nil {
		return
	}
	audit := &models.ReviewAudit{
		ID:           uuid.New(),
		ProviderID:   rec.ID,
		ProviderKind: rec.Kind,
		PromptID:     promptID,
		FileCount:    files,
		Status:       status,
		ErrorCode:    code,
		DurationMS:   elapsed.Milliseconds(),
		CreatedAt:    s.now().UTC(),
	}
	// Detached from the request so a client disconnect still records the
	// outcome, but bounded so a backed-up queue cannot stall the response.
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.auditWait)
	defer cancel()
	if err := s.audits.Enqueue(actx, audit); err != nil {
		s.log.Warn("dropped review audit", "provider_id", rec.ID.String(), "audit_id", audit.ID.String(), "error", err)
	}
}
