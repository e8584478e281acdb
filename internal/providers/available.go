package providers

import "review_gateway/internal/models"

// EnvCredentials are provider credentials supplied through the environment.
type EnvCredentials struct {
	GeminiAPIKey string
	GeminiModel  string

	AzureAPIKey     string
	AzureEndpoint   string
	AzureDeployment string

	AnthropicAPIKey string
	AnthropicModel  string
}

// Available is one provider kind configured through the environment.
type Available struct {
	Kind        models.ProviderKind `json:"provider"`
	Name        string              `json:"name"`
	Credentials Credentials         `json:"-"`
}

// AvailableFromEnv lists kinds whose required variables are all set, in
// display order.
func AvailableFromEnv(env EnvCredentials) []Available {
	var out []Available

	if env.GeminiAPIKey != "" {
		out = append(out, Available{
			Kind: models.ProviderKindGemini,
			Name: models.ProviderKindGemini.DisplayName(),
			Credentials: Credentials{
				APIKey: env.GeminiAPIKey,
				Model:  env.GeminiModel,
			},
		})
	}

	if env.AzureAPIKey != "" && env.AzureEndpoint != "" && env.AzureDeployment != "" {
		out = append(out, Available{
			Kind: models.ProviderKindAzureOpenAI,
			Name: models.ProviderKindAzureOpenAI.DisplayName(),
			Credentials: Credentials{
				APIKey:     env.AzureAPIKey,
				Endpoint:   env.AzureEndpoint,
				Deployment: env.AzureDeployment,
			},
		})
	}

	if env.AnthropicAPIKey != "" {
		out = append(out, Available{
			Kind: models.ProviderKindClaude,
			Name: models.ProviderKindClaude.DisplayName(),
			Credentials: Credentials{
				APIKey: env.AnthropicAPIKey,
				Model:  env.AnthropicModel,
			},
		})
	}

	return out
}
