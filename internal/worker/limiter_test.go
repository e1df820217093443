package worker

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestIntervalLimiter_Disabled(t *testing.T) {
	limiter := NewIntervalLimiter(0)
	if limiter.defaultRate != rate.Inf {
		t.Fatalf("expected infinite rate, got %v", limiter.defaultRate)
	}
	for i := 0; i < 100; i++ {
		if !limiter.Allow("llm") {
			t.Fatalf("call %d should be allowed with pacing disabled", i)
		}
	}
}

func TestIntervalLimiter_Spacing(t *testing.T) {
	limiter := NewIntervalLimiter(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "llm"); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
	// First call is free, the next two wait one interval each
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Errorf("expected >= 80ms of pacing, got %v", elapsed)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewIntervalLimiter(time.Hour)

	if !limiter.Allow("llm") {
		t.Error("first call must be allowed")
	}
	if limiter.Allow("llm") {
		t.Error("second call on same key must be throttled")
	}
	if !limiter.Allow("feeds") {
		t.Error("other key must be allowed")
	}
}

func TestLimiter_WaitCanceled(t *testing.T) {
	limiter := NewIntervalLimiter(time.Hour)
	_ = limiter.Allow("llm")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "llm"); err == nil {
		t.Error("expected error when context ends before a token is available")
	}
}

func TestLimiter_SetInterval(t *testing.T) {
	limiter := NewIntervalLimiter(10 * time.Millisecond)

	limiter.SetInterval("slow.example.com", time.Hour)
	if !limiter.Allow("slow.example.com") {
		t.Error("first call must be allowed")
	}
	if limiter.Allow("slow.example.com") {
		t.Error("crawl delay should throttle second call")
	}

	// Faster than default is ignored
	limiter.SetInterval("fast.example.com", time.Millisecond)
	if _, ok := limiter.limiters["fast.example.com"]; ok {
		t.Error("faster interval must not override default")
	}
}

func TestHostKey(t *testing.T) {
	if got := HostKey("https://feeds.bbci.co.uk/news/world/rss.xml"); got != "feeds.bbci.co.uk" {
		t.Errorf("got %q", got)
	}
	if got := HostKey("llm"); got != "llm" {
		t.Errorf("got %q", got)
	}
}
