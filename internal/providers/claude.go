package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"review_gateway/internal/apperr"
	"review_gateway/internal/models"
)

// ClaudeClient reviews files through the Anthropic Messages API.
type ClaudeClient struct {
	client *anthropic.Client
	model  string
	fanout *fanout
}

// NewClaudeClient builds a client for the given credentials.
func NewClaudeClient(ctx context.Context, creds Credentials, opts Options) (ReviewClient, error) {
	if creds.APIKey == "" {
		return nil, missingFields(models.ProviderKindClaude, "apiKey")
	}

	model := creds.Model
	if model == "" {
		model = DefaultClaudeModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(creds.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimSuffix(opts.BaseURL, "/")+"/"))
	}
	client := anthropic.NewClient(reqOpts...)

	c := &ClaudeClient{client: &client, model: model}
	c.fanout = &fanout{
		provider:    string(models.ProviderKindClaude),
		complete:    c.complete,
		status:      claudeStatus,
		callTimeout: opts.CallTimeout,
		metrics:     opts.Metrics,
	}
	return c, nil
}

func (c *ClaudeClient) Review(ctx context.Context, files []CodeFile, systemPrompt string) ([]ReviewedFile, error) {
	return c.fanout.review(ctx, files, systemPrompt)
}

func (c *ClaudeClient) complete(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   claudeMaxTokens,
		Temperature: anthropic.Float(reviewTemperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("claude returned no text content (stop reason %q)", message.StopReason)
	}
	return sb.String(), nil
}

func claudeStatus(err error) (int, bool) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}

func missingFields(kind models.ProviderKind, fields ...string) error {
	return apperr.Configuration(apperr.CodeConfiguration,
		fmt.Sprintf("%s configuration is incomplete, missing: %s", kind, strings.Join(fields, ", ")))
}
