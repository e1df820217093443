// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/ppiankov/realitycheck/internal/llm"
)

// ErrUnscripted is returned when no reply is configured for a request
var ErrUnscripted = errors.New("llmtest: no scripted reply")

// Reply is one canned answer
type Reply struct {
	Text string
	Err  error
}

// Provider replies from a function or from per-stage queues.
// It records every request it sees.
type Provider struct {
	mu       sync.Mutex
	handler  func(llm.GenerateRequest) Reply
	queues   map[string][]Reply
	requests []llm.GenerateRequest
	forgot   []llm.GenerateRequest
}

// New returns a provider that answers every request with handler
func New(handler func(llm.GenerateRequest) Reply) *Provider {
	return &Provider{handler: handler, queues: make(map[string][]Reply)}
}

// Queued returns a provider that pops replies per stage in order
func Queued() *Provider {
	return &Provider{queues: make(map[string][]Reply)}
}

// Push appends replies for a stage
func (p *Provider) Push(stage string, replies ...Reply) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queues[stage] = append(p.queues[stage], replies...)
	return p
}

func (p *Provider) Name() string { return "llmtest" }

func (p *Provider) IsAvailable(ctx context.Context) bool { return true }

func (p *Provider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	var reply Reply
	switch q := p.queues[req.Stage]; {
	case len(q) > 0:
		reply = q[0]
		p.queues[req.Stage] = q[1:]
	case p.handler != nil:
		p.mu.Unlock()
		reply = p.handler(req)
		p.mu.Lock()
	default:
		reply = Reply{Err: ErrUnscripted}
	}
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &llm.GenerateResponse{Text: reply.Text, Model: "llmtest"}, nil
}

// Forget records that a caller discarded the reply to req
func (p *Provider) Forget(req llm.GenerateRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forgot = append(p.forgot, req)
}

// Forgotten returns the requests whose replies were discarded
func (p *Provider) Forgotten() []llm.GenerateRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.GenerateRequest, len(p.forgot))
	copy(out, p.forgot)
	return out
}

// Requests returns a copy of all requests seen so far
func (p *Provider) Requests() []llm.GenerateRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.GenerateRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// RequestsFor returns the requests seen for one stage
func (p *Provider) RequestsFor(stage string) []llm.GenerateRequest {
	var out []llm.GenerateRequest
	for _, r := range p.Requests() {
		if r.Stage == stage {
			out = append(out, r)
		}
	}
	return out
}
