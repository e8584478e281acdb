package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"review_gateway/internal/models"
)

// AzureClient reviews files through an Azure OpenAI chat deployment.
type AzureClient struct {
	client     *openai.Client
	deployment string
	fanout     *fanout
}

// NewAzureClient requires endpoint, deployment and key.
func NewAzureClient(ctx context.Context, creds Credentials, opts Options) (ReviewClient, error) {
	var missing []string
	if creds.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if creds.APIKey == "" {
		missing = append(missing, "apiKey")
	}
	if creds.Deployment == "" {
		missing = append(missing, "deployment")
	}
	if len(missing) > 0 {
		return nil, missingFields(models.ProviderKindAzureOpenAI, missing...)
	}

	apiVersion := opts.AzureAPIVersion
	if apiVersion == "" {
		apiVersion = DefaultAzureAPIVersion
	}

	client := openai.NewClient(
		azure.WithEndpoint(creds.Endpoint, apiVersion),
		azure.WithAPIKey(creds.APIKey),
		option.WithMaxRetries(0),
	)

	c := &AzureClient{client: &client, deployment: creds.Deployment}
	c.fanout = &fanout{
		provider:    string(models.ProviderKindAzureOpenAI),
		complete:    c.complete,
		status:      azureStatus,
		callTimeout: opts.CallTimeout,
		metrics:     opts.Metrics,
	}
	return c, nil
}

func (c *AzureClient) Review(ctx context.Context, files []CodeFile, systemPrompt string) ([]ReviewedFile, error) {
	return c.fanout.review(ctx, files, systemPrompt)
}

func (c *AzureClient) complete(ctx context.Context, prompt string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		// Azure routes by deployment name; the model field carries it.
		Model: shared.ChatModel(c.deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(reviewTemperature),
		MaxTokens:   openai.Int(azureMaxTokens),
	})
	if err != nil {
		return "", err
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("azure openai returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func azureStatus(err error) (int, bool) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}
