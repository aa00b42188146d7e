package generate

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewModel creates an LLM client for the configured provider. API keys come
// from the provider's usual environment variables.
func NewModel(provider, model string) (llms.Model, error) {
	switch provider {
	case "", "anthropic":
		return anthropic.New(anthropic.WithModel(model))
	case "openai":
		return openai.New(openai.WithModel(model))
	default:
		return nil, fmt.Errorf("unknown generation provider %q", provider)
	}
}
