package providers

import (
	"context"
	"time"

	"review_gateway/internal/metrics"
)

// CodeFile is one file submitted for review.
type CodeFile struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// ReviewedFile is the annotated version of a CodeFile.
type ReviewedFile struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// ReviewClient is implemented by each provider kind (Gemini, Azure OpenAI,
// Claude). Review returns one file per input in input order, or an error if
// any file failed.
type ReviewClient interface {
	Review(ctx context.Context, files []CodeFile, systemPrompt string) ([]ReviewedFile, error)
}

// Credentials carries a decrypted API key and the optional per-kind settings.
type Credentials struct {
	APIKey     string
	Endpoint   string
	Deployment string
	Model      string
}

// Options are shared by every client a Factory builds.
type Options struct {
	// CallTimeout bounds each per-file provider call. Zero means no bound.
	CallTimeout time.Duration

	// BaseURL overrides the provider API root. Used by tests.
	BaseURL string

	// AzureAPIVersion is sent with Azure OpenAI requests.
	AzureAPIVersion string

	Metrics metrics.Metrics
}

// Defaults per kind.
const (
	DefaultGeminiModel     = "gemini-1.5-flash"
	DefaultClaudeModel     = "claude-3-5-sonnet-20241022"
	DefaultAzureAPIVersion = "2024-10-21"

	reviewTemperature = 0.3

	geminiMaxOutputTokens = 8192
	azureMaxTokens        = 4096
	claudeMaxTokens       = 8192
)
