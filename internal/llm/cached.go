package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppiankov/realitycheck/internal/cache"
)

// CachedProvider serves repeated prompts from a cache.
// Only successful responses are stored; callers drop unusable ones with Forget.
type CachedProvider struct {
	inner Provider
	cache cache.Cache
	model string
	ttl   time.Duration
}

// NewCachedProvider wraps inner with a response cache. model is the configured
// default so that cache keys differ between models even when requests leave Model empty.
func NewCachedProvider(inner Provider, c cache.Cache, model string, ttl time.Duration) *CachedProvider {
	return &CachedProvider{inner: inner, cache: c, model: model, ttl: ttl}
}

func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

func (p *CachedProvider) IsAvailable(ctx context.Context) bool {
	return p.inner.IsAvailable(ctx)
}

func (p *CachedProvider) key(req GenerateRequest) string {
	model := req.Model
	if model == "" {
		model = p.model
	}
	return cache.Key("llm", p.inner.Name(), model, req.System, req.Prompt)
}

// Forget removes the stored reply for req
func (p *CachedProvider) Forget(req GenerateRequest) {
	_ = p.cache.Delete(p.key(req))
}

func (p *CachedProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	key := p.key(req)

	if data, ok := p.cache.Get(key); ok {
		var resp GenerateResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			resp.Cached = true
			return &resp, nil
		}
		_ = p.cache.Delete(key)
	}

	resp, err := p.inner.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		_ = p.cache.Set(key, data, p.ttl)
	}
	return resp, nil
}
