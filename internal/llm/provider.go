package llm

import (
	"context"

	"github.com/ppiankov/realitycheck/internal/model"
)

// Provider defines the interface for text-generation backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate returns the backend's text completion for a single prompt
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Forgetter is implemented by providers that keep replies, so a caller that
// cannot use a reply can make the next identical request reach the backend.
type Forgetter interface {
	Forget(req GenerateRequest)
}

// Forget drops any stored reply for req. It does nothing when p keeps none.
func Forget(p Provider, req GenerateRequest) {
	if f, ok := p.(Forgetter); ok {
		f.Forget(req)
	}
}

// GenerateRequest is one prompt sent to the backend
type GenerateRequest struct {
	// System holds standing instructions shared across many calls
	System string

	// CacheSystem asks providers that support prompt caching to cache System
	CacheSystem bool

	// Prompt is the per-call user message
	Prompt string

	// Model overrides the configured model when set
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Stage labels the call for logs and metrics ("extract", "synthesize", "feedback")
	Stage string
}

// GenerateResponse is the backend's raw reply
type GenerateResponse struct {
	Text       string
	Model      string
	TokensUsed int
	Cached     bool // served from the response cache
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "anthropic", "openai", "groq", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "anthropic",
		Model:       "claude-sonnet-4-20250514",
		Timeout:     60,
		MaxTokens:   1000,
		Temperature: 0.7,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Timeout:     c.Timeout,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		HTTPProxy:   c.HTTPProxy,
		HTTPSProxy:  c.HTTPSProxy,
		NoProxy:     c.NoProxy,
	}
}

func (c Config) model(override, fallback string) string {
	if override != "" {
		return override
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

func (c Config) maxTokens(override int) int {
	if override > 0 {
		return override
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1000
}
