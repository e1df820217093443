package llm

import (
	"context"
	"time"

	"github.com/ppiankov/realitycheck/internal/metrics"
)

// InstrumentedProvider records call counts and latency per request stage
type InstrumentedProvider struct {
	inner Provider
	now   func() time.Time
}

// Instrument wraps p with Prometheus call metrics
func Instrument(p Provider) *InstrumentedProvider {
	return &InstrumentedProvider{inner: p, now: time.Now}
}

func (p *InstrumentedProvider) Name() string {
	return p.inner.Name()
}

func (p *InstrumentedProvider) IsAvailable(ctx context.Context) bool {
	return p.inner.IsAvailable(ctx)
}

func (p *InstrumentedProvider) Forget(req GenerateRequest) {
	Forget(p.inner, req)
}

func (p *InstrumentedProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	stage := req.Stage
	if stage == "" {
		stage = "unknown"
	}

	start := p.now()
	resp, err := p.inner.Generate(ctx, req)
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case resp.Cached:
		status = "cached"
	}
	metrics.RecordLLMCall(stage, status, p.now().Sub(start).Seconds())
	return resp, err
}
