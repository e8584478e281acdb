package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_gateway/internal/models"
)

func TestAvailableFromEnv(t *testing.T) {
	assert.Empty(t, AvailableFromEnv(EnvCredentials{}))

	// Azure needs all three values.
	assert.Empty(t, AvailableFromEnv(EnvCredentials{AzureAPIKey: "k", AzureEndpoint: "https://x"}))

	got := AvailableFromEnv(EnvCredentials{
		GeminiAPIKey:    "g",
		AzureAPIKey:     "a",
		AzureEndpoint:   "https://x.openai.azure.com",
		AzureDeployment: "d",
		AnthropicAPIKey: "c",
		AnthropicModel:  "claude-3-haiku-20240307",
	})
	require.Len(t, got, 3)
	assert.Equal(t, models.ProviderKindGemini, got[0].Kind)
	assert.Equal(t, models.ProviderKindAzureOpenAI, got[1].Kind)
	assert.Equal(t, "d", got[1].Credentials.Deployment)
	assert.Equal(t, models.ProviderKindClaude, got[2].Kind)
	assert.Equal(t, "claude-3-haiku-20240307", got[2].Credentials.Model)
}
