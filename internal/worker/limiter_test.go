package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	if l := NewLimiter(10, 5); l.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", l.defaultBurst)
	}
	if l := NewLimiter(10, -1); l.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l.defaultBurst)
	}
}

func TestLimiter_PerKey(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if err := limiter.Wait(context.Background(), "will-1"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "will-1"); err == nil {
		t.Error("expected exhausted key to exceed the deadline")
	}
	if err := limiter.Wait(ctx, "will-2"); err != nil {
		t.Errorf("expected other key to pass, got %v", err)
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(ctx, "k"); err != nil {
			t.Fatalf("expected zero rate to disable limiting, refused at %d: %v", i, err)
		}
	}
}

func TestHostKey(t *testing.T) {
	host, err := HostKey("https://api.openai.com/v1")
	if err != nil {
		t.Fatalf("HostKey failed: %v", err)
	}
	if host != "api.openai.com" {
		t.Errorf("expected api.openai.com, got %s", host)
	}

	if _, err := HostKey("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
