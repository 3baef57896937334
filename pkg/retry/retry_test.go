package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type classified struct {
	msg       string
	retryable bool
}

func (e *classified) Error() string     { return e.msg }
func (e *classified) IsRetryable() bool { return e.retryable }

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != 500*time.Millisecond {
		t.Errorf("expected InitialDelay=500ms, got %v", cfg.InitialDelay)
	}
	if got := WithMaxRetries(7).MaxRetries; got != 7 {
		t.Errorf("expected MaxRetries=7, got %d", got)
	}
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(3), func(ctx context.Context) (string, error) {
		calls++
		return "improved", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "improved" || calls != 1 {
		t.Errorf("got %q after %d calls", got, calls)
	}
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		retried = append(retried, attempt)
	}

	got, err := Do(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &classified{msg: fmt.Sprintf("upstream %d", calls), retryable: true}
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("got %d after %d calls", got, calls)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("unexpected OnRetry attempts %v", retried)
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := &classified{msg: "invalid api key", retryable: false}

	_, err := Do(context.Background(), fastConfig(5), func(ctx context.Context) (string, error) {
		calls++
		return "", permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(2), func(ctx context.Context) (string, error) {
		calls++
		return "", fmt.Errorf("attempt %d: connection reset by peer", calls)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls (1 + 2 retries), got %d", calls)
	}
}

func TestDo_CustomRetryable(t *testing.T) {
	errConflict := errors.New("write conflict")
	cfg := fastConfig(5)
	cfg.Retryable = func(err error) bool { return errors.Is(err, errConflict) }

	calls := 0
	got, err := Do(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		if calls < 4 {
			return 0, errConflict
		}
		return calls, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Errorf("expected success on 4th call, got %d", got)
	}

	calls = 0
	_, err = Do(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("503 service unavailable")
	})
	if err == nil || calls != 1 {
		t.Errorf("expected a single call for an error the classifier rejects, got %d calls, err=%v", calls, err)
	}
}

func TestDo_EscalatesRepeatedErrorKind(t *testing.T) {
	cfg := fastConfig(10)
	cfg.MaxSameErrorType = 2
	calls := 0

	_, err := Do(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("status 429: rate limit")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("expected escalation after 2 calls, got %d", calls)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 1}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Do(ctx, cfg, func(ctx context.Context) (string, error) {
		return "", errors.New("503 service unavailable")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancellation did not interrupt the wait")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("Anthropic API is overloaded"), true},
		{errors.New("status code: 401"), false},
		{context.DeadlineExceeded, false},
		{fmt.Errorf("wrapped: %w", &classified{msg: "x", retryable: true}), true},
		{fmt.Errorf("wrapped: %w", &classified{msg: "503", retryable: false}), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
