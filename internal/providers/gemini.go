package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"review_gateway/internal/models"
)

// GeminiClient reviews files through the Gemini generateContent API.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	fanout *fanout
}

// NewGeminiClient builds a client for the given credentials. Close releases
// the underlying connection.
func NewGeminiClient(ctx context.Context, creds Credentials, opts Options) (ReviewClient, error) {
	if creds.APIKey == "" {
		return nil, missingFields(models.ProviderKindGemini, "apiKey")
	}

	modelName := creds.Model
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(creds.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.BaseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(reviewTemperature)
	model.SetMaxOutputTokens(geminiMaxOutputTokens)

	c := &GeminiClient{client: client, model: model}
	c.fanout = newGeminiFanout(c.complete, opts)
	return c, nil
}

func newGeminiFanout(complete completeFunc, opts Options) *fanout {
	return &fanout{
		provider:    string(models.ProviderKindGemini),
		complete:    complete,
		status:      geminiStatus,
		callTimeout: opts.CallTimeout,
		metrics:     opts.Metrics,
	}
}

func (c *GeminiClient) Review(ctx context.Context, files []CodeFile, systemPrompt string) ([]ReviewedFile, error) {
	return c.fanout.review(ctx, files, systemPrompt)
}

// Close releases the client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func (c *GeminiClient) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return geminiText(resp)
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

func geminiStatus(err error) (int, bool) {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	return 0, false
}
