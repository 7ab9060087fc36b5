package llm

import (
	"fmt"
	"net/http"
	"strings"

	"synthpop/internal/config"
)

// Factory builds provider clients from configuration. Structured output and
// vision always go through OpenAI; free text follows LLM_PROVIDER.
type Factory struct {
	OpenaiAPIKey       string
	OpenaiBaseURL      string
	OpenaiModel        string
	OpenaiVisionModel  string
	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string
	HTTPClient         *http.Client
}

func NewFactory(cfg *config.Config, httpClient *http.Client) *Factory {
	return &Factory{
		OpenaiAPIKey:       cfg.OpenAIAPIKey,
		OpenaiBaseURL:      cfg.OpenAIBaseURL,
		OpenaiModel:        cfg.OpenAIModel,
		OpenaiVisionModel:  cfg.OpenAIVisionModel,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
		HTTPClient:         httpClient,
	}
}

func (f *Factory) OpenAI() *OpenAIClient {
	return NewOpenAI(OpenAIOptions{
		APIKey:      f.OpenaiAPIKey,
		BaseURL:     f.OpenaiBaseURL,
		Model:       f.OpenaiModel,
		VisionModel: f.OpenaiVisionModel,
		Referrer:    f.OpenRouterReferrer,
		Title:       f.OpenRouterTitle,
		HTTPClient:  f.HTTPClient,
	})
}

// CreateClient returns the free-text writer for provider.
func (f *Factory) CreateClient(provider string) (Client, error) {
	switch strings.ToLower(provider) {
	case string(config.ProviderOpenAI):
		return f.OpenAI(), nil
	case string(config.ProviderYandex):
		return NewYandex(f.YandexOAuthToken, f.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
