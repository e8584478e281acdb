package providers

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"review_gateway/internal/metrics"
)

var tracer = otel.Tracer("review_gateway/providers")

var codeBlockPattern = regexp.MustCompile("```[\\w]*\\n([\\s\\S]*?)```")

// ExtractCode returns the trimmed body of the first fenced code block in a
// model response, or the whole trimmed response when there is none.
func ExtractCode(response string) string {
	if m := codeBlockPattern.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(response)
}

// BuildPrompt joins the system prompt with one file's header and fenced body.
func BuildPrompt(systemPrompt string, file CodeFile) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\n---\n\n")
	sb.WriteString("File: ")
	sb.WriteString(file.Name)
	sb.WriteString("\nLanguage: ")
	sb.WriteString(file.Language)
	sb.WriteString("\n\n```")
	sb.WriteString(file.Language)
	sb.WriteString("\n")
	sb.WriteString(file.Content)
	sb.WriteString("\n```")
	return sb.String()
}

// completeFunc sends one prompt and returns the raw model text.
type completeFunc func(ctx context.Context, prompt string) (string, error)

// fanout reviews files concurrently with one request per file. The first
// failure cancels the rest and no partial results are returned.
type fanout struct {
	provider    string
	complete    completeFunc
	status      statusFunc
	callTimeout time.Duration
	metrics     metrics.Metrics
}

func (f *fanout) review(ctx context.Context, files []CodeFile, systemPrompt string) ([]ReviewedFile, error) {
	results := make([]ReviewedFile, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			content, err := f.reviewFile(gctx, file, systemPrompt)
			if err != nil {
				return err
			}
			results[i] = ReviewedFile{Name: file.Name, Language: file.Language, Content: content}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (f *fanout) reviewFile(ctx context.Context, file CodeFile, systemPrompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "provider."+f.provider+".review_file")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider.kind", f.provider),
		attribute.String("file.language", file.Language),
		attribute.Int("file.size", len(file.Content)),
	)

	if f.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.callTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := f.complete(ctx, BuildPrompt(systemPrompt, file))
	if err != nil {
		perr := newProviderError(f.provider, file.Name, err, f.status)
		f.observe(perr.Kind.String(), start)
		span.RecordError(perr)
		span.SetStatus(codes.Error, perr.Kind.String())
		return "", perr
	}

	f.observe("ok", start)
	return ExtractCode(raw), nil
}

func (f *fanout) observe(status string, start time.Time) {
	if f.metrics != nil {
		f.metrics.RecordProviderCall(f.provider, status, time.Since(start))
	}
}
