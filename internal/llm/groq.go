package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/ppiankov/realitycheck/internal/util"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	groqDefaultModel = "llama-3.3-70b-versatile"
)

// GroqProvider talks to Groq's OpenAI-compatible endpoint
type GroqProvider struct {
	opts   []option.RequestOption
	config Config
}

// NewGroqProvider creates a new Groq provider
func NewGroqProvider(config Config) (*GroqProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("groq API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = groqBaseURL
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		}),
	}
	return &GroqProvider{opts: opts, config: config}, nil
}

// Name returns the provider name
func (p *GroqProvider) Name() string {
	return "groq"
}

// IsAvailable lists models as a credential check
func (p *GroqProvider) IsAvailable(ctx context.Context) bool {
	client := openai.NewClient(p.opts...)
	_, err := client.Models.List(ctx)
	return err == nil
}

// Generate uses the chat completions endpoint
func (p *GroqProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	client := openai.NewClient(p.opts...)
	model := p.config.model(req.Model, groqDefaultModel)

	var msgs []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(model),
		Messages:  msgs,
		MaxTokens: openai.Int(int64(p.config.maxTokens(req.MaxTokens))),
	}
	if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("groq API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("groq: empty choices")
	}

	return &GenerateResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:      resp.Model,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}
