package retrylimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type statusErr int

func (s statusErr) Error() string   { return "status" }
func (s statusErr) StatusCode() int { return int(s) }

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialDelay:   time.Millisecond,
		MaxDelay:       time.Millisecond,
		RateLimitDelay: time.Millisecond,
		Multiplier:     2,
	}
}

func TestWithRetrySucceedsAfterServerError(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		if calls < 2 {
			return statusErr(503)
		}
		return nil
	}, nil, fastConfig(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestWithRetryStopsOnFatal(t *testing.T) {
	bad := errors.New("unknown voice")
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return Fatal(bad)
	}, nil, fastConfig(5))
	if !errors.Is(err, bad) {
		t.Fatalf("expected wrapped fatal error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("fatal error must not be retried, got %d calls", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func() error {
		calls++
		return statusErr(429)
	}, nil, fastConfig(3))
	if !errors.Is(err, ErrMaxAttempts) {
		t.Fatalf("expected ErrMaxAttempts, got %v", err)
	}
	if !IsRateLimited(err) {
		t.Fatal("last failure should stay visible through the wrap")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithRetryConfig(ctx, func() error {
		t.Fatal("fn must not run on a canceled context")
		return nil
	}, nil, fastConfig(3))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAdaptiveLimiterBounds(t *testing.T) {
	lim := NewAdaptiveLimiter(4, 1, 8, 1, 0.5)
	lim.RateLimited()
	if got := lim.CurrentLimit(); got != 2 {
		t.Fatalf("expected limit 2 after halving, got %v", got)
	}
	lim.RateLimited()
	lim.RateLimited()
	if got := lim.CurrentLimit(); got != 1 {
		t.Fatalf("limit must not drop below min, got %v", got)
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsServerError(statusErr(502)) {
		t.Fatal("502 is a server error")
	}
	if IsServerError(statusErr(404)) {
		t.Fatal("404 is not a server error")
	}
	if IsRateLimited(errors.New("plain")) {
		t.Fatal("plain errors carry no status")
	}
}
