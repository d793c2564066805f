package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Mode != config.RetryBackoffLinear {
		t.Fatalf("expected linear default mode got %s", p.Mode)
	}
	if p.MaxRetries != 2 {
		t.Fatalf("expected max retries 2 got %d", p.MaxRetries)
	}
}

// TestFromConfigOverrides checks override precedence and clamping when initial > max.
func TestFromConfigOverrides(t *testing.T) {
	p := FromConfig(config.RetryConfig{Backoff: config.RetryBackoffFixed, Initial: 5 * time.Second, Max: 2 * time.Second, MaxRetries: 5})
	if p.Initial != 2*time.Second {
		t.Fatalf("expected clamped initial 2s got %v", p.Initial)
	}
	if p.Mode != config.RetryBackoffFixed {
		t.Fatalf("expected fixed mode got %s", p.Mode)
	}
	if p.MaxRetries != 5 {
		t.Fatalf("expected maxRetries 5 got %d", p.MaxRetries)
	}
	if got := FromConfig(config.RetryConfig{MaxRetries: -1}).MaxRetries; got != 0 {
		t.Fatalf("negative max retries should disable retries, got %d", got)
	}
}

// TestDelayModes ensures fixed, linear, exponential behave and respect cap.
func TestDelayModes(t *testing.T) {
	fixed := Policy{Mode: config.RetryBackoffFixed, Initial: 100 * time.Millisecond, Max: 500 * time.Millisecond}
	for i := 1; i <= 3; i++ {
		if d := fixed.Delay(i); d != 100*time.Millisecond {
			t.Fatalf("fixed attempt %d expected 100ms got %v", i, d)
		}
	}

	linear := Policy{Mode: config.RetryBackoffLinear, Initial: 100 * time.Millisecond, Max: 250 * time.Millisecond}
	cases := []struct {
		attempt int
		want    time.Duration
	}{{1, 100 * time.Millisecond}, {2, 200 * time.Millisecond}, {3, 250 * time.Millisecond}, {4, 250 * time.Millisecond}}
	for _, c := range cases {
		if d := linear.Delay(c.attempt); d != c.want {
			t.Fatalf("linear attempt %d expected %v got %v", c.attempt, c.want, d)
		}
	}

	exp := Policy{Mode: config.RetryBackoffExponential, Initial: 50 * time.Millisecond, Max: 300 * time.Millisecond}
	expCases := []struct {
		attempt int
		want    time.Duration
	}{{1, 50 * time.Millisecond}, {2, 100 * time.Millisecond}, {3, 200 * time.Millisecond}, {4, 300 * time.Millisecond}}
	for _, c := range expCases {
		if d := exp.Delay(c.attempt); d != c.want {
			t.Fatalf("exponential attempt %d expected %v got %v", c.attempt, c.want, d)
		}
	}
	if d := exp.Delay(0); d != 0 {
		t.Fatalf("attempt 0 expected 0 got %v", d)
	}
}

func TestDo(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third call, got err=%v calls=%d", err, calls)
	}

	calls = 0
	sentinel := errors.New("down")
	err = p.Do(context.Background(), func() error { calls++; return sentinel })
	if !errors.Is(err, sentinel) || calls != 3 {
		t.Fatalf("expected wrapped sentinel after 3 calls, got err=%v calls=%d", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = 0
	_ = Policy{Mode: config.RetryBackoffFixed, Initial: time.Hour, Max: time.Hour, MaxRetries: 5}.
		Do(ctx, func() error { calls++; return sentinel })
	if calls != 1 {
		t.Fatalf("cancelled context should stop retries, got %d calls", calls)
	}
}
