package embed

import (
	"fmt"
	"os"

	"github.com/abhisek/readlevel/internal/retry"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderHash   = "hash"
	ProviderMock   = "mock"
)

// Config holds embedding provider configuration.
type Config struct {
	// Provider selects the embedding backend. Empty means discover from
	// the environment (see Discover).
	Provider string

	Model   string
	APIKey  string
	BaseURL string // OpenAI-compatible servers such as Ollama.

	// Dimension requests a reduced output size where the provider supports
	// it. For the hash provider it is the vector length.
	Dimension int

	Retry retry.Config
}

// DefaultModel returns the default model for a provider.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "text-embedding-3-small"
	case ProviderGemini:
		return "text-embedding-004"
	case ProviderHash:
		return HashModelID(DefaultHashDimension)
	default:
		return ""
	}
}

// Discover fills an empty Provider from standard API key variables:
// OpenAI first, then Gemini, falling back to the offline hash embedder.
func (c Config) Discover() Config {
	if c.Provider != "" {
		return c
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		c.Provider = ProviderOpenAI
		if c.APIKey == "" {
			c.APIKey = k
		}
		return c
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		c.Provider = ProviderGemini
		if c.APIKey == "" {
			c.APIKey = k
		}
		return c
	}
	c.Provider = ProviderHash
	return c
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.APIKey == "" && c.BaseURL == "" {
			return fmt.Errorf("an API key or base URL is required for the openai embedder")
		}
	case ProviderGemini:
		if c.APIKey == "" {
			return fmt.Errorf("an API key is required for the gemini embedder")
		}
	case ProviderHash, ProviderMock:
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.Provider)
	}
	if c.Dimension < 0 {
		return fmt.Errorf("embedding dimension must not be negative")
	}
	return nil
}
