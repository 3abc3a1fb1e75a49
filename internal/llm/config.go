package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/abhisek/readlevel/internal/retry"
)

// Provider names accepted in Config.Provider.
const (
	Anthropic  = "anthropic"
	OpenAI     = "openai"
	Gemini     = "gemini"
	OpenRouter = "openrouter"
	Mock       = "mock"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type backend struct {
	keyEnv       string
	defaultModel string
	aliases      map[string]string
}

var backends = map[string]backend{
	Anthropic: {
		keyEnv:       "ANTHROPIC_API_KEY",
		defaultModel: "claude-haiku",
		aliases: map[string]string{
			"claude-haiku":  "claude-haiku-4-5-20251001",
			"claude-sonnet": "claude-sonnet-4-5",
		},
	},
	OpenAI: {
		keyEnv:       "OPENAI_API_KEY",
		defaultModel: "gpt-4o-mini",
	},
	Gemini: {
		keyEnv:       "GEMINI_API_KEY",
		defaultModel: "gemini-flash",
		aliases: map[string]string{
			"gemini-flash": "gemini-2.5-flash",
			"gemini-lite":  "gemini-2.5-flash-lite",
		},
	},
	OpenRouter: {
		keyEnv:       "OPENROUTER_API_KEY",
		defaultModel: "google/gemini-2.5-flash",
	},
	Mock: {defaultModel: "mock"},
}

// Standard key variables are checked in this order.
var discoveryOrder = []string{Gemini, OpenAI, Anthropic, OpenRouter}

// Config selects one chat provider.
type Config struct {
	Provider string
	Model    string // alias or provider model ID; empty picks the default
	APIKey   string
	BaseURL  string // OpenAI-compatible servers, or a test server

	// Timeout bounds a single attempt.
	Timeout time.Duration
	Retry   RetryConfig
}

func DefaultConfig() Config {
	return Config{
		Provider: Anthropic,
		Timeout:  30 * time.Second,
		Retry:    retry.DefaultConfig(),
	}
}

// ModelID resolves Model through the provider's aliases.
func (c Config) ModelID() string {
	b := backends[c.Provider]
	m := c.Model
	if m == "" {
		m = b.defaultModel
	}
	if id, ok := b.aliases[m]; ok {
		return id
	}
	return m
}

// ConfigFromEnv reads READLEVEL_LLM_* variables over the defaults. An
// explicitly chosen provider also accepts its standard key variable.
func ConfigFromEnv() Config {
	c := DefaultConfig()
	c.Model = os.Getenv("READLEVEL_LLM_MODEL")
	c.APIKey = os.Getenv("READLEVEL_LLM_API_KEY")
	if v := os.Getenv("READLEVEL_LLM_PROVIDER"); v != "" {
		c.Provider = v
		if c.APIKey == "" && backends[v].keyEnv != "" {
			c.APIKey = os.Getenv(backends[v].keyEnv)
		}
	}
	c.BaseURL = os.Getenv("READLEVEL_LLM_BASE_URL")
	if d, err := time.ParseDuration(os.Getenv("READLEVEL_LLM_TIMEOUT")); err == nil && d > 0 {
		c.Timeout = d
	}
	if n, err := strconv.Atoi(os.Getenv("READLEVEL_LLM_MAX_ATTEMPTS")); err == nil && n > 0 {
		c.Retry.MaxAttempts = n
	}
	return c
}

// DiscoverConfig picks the first provider whose standard API key variable
// is set. ok is false when none is.
func DiscoverConfig() (c Config, ok bool) {
	for _, name := range discoveryOrder {
		if key := os.Getenv(backends[name].keyEnv); key != "" {
			c = DefaultConfig()
			c.Provider = name
			c.APIKey = key
			return c, true
		}
	}
	return Config{}, false
}

func (c Config) Validate() error {
	if _, ok := backends[c.Provider]; !ok {
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.Provider != Mock && c.APIKey == "" {
		return fmt.Errorf("%s provider needs an API key (READLEVEL_LLM_API_KEY or %s)", c.Provider, backends[c.Provider].keyEnv)
	}
	return nil
}
