// Package retry provides backoff policies for transient failures.
package retry

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // maximum retry attempts after the first failure
}

// DefaultPolicy returns linear backoff, 500ms initial, 5s cap, 2 retries.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffLinear, Initial: 500 * time.Millisecond, Max: 5 * time.Second, MaxRetries: 2}
}

// FromConfig builds a policy from configuration; zero values fall back to
// defaults and a negative MaxRetries disables retries.
func FromConfig(rc config.RetryConfig) Policy {
	p := DefaultPolicy()
	switch {
	case rc.MaxRetries < 0:
		p.MaxRetries = 0
	case rc.MaxRetries > 0:
		p.MaxRetries = rc.MaxRetries
	}
	if rc.Initial > 0 {
		p.Initial = rc.Initial
	}
	if rc.Max > 0 {
		p.Max = rc.Max
	}
	switch rc.Backoff {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = rc.Backoff
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Do calls fn until it succeeds, the retries are exhausted or ctx is done.
// The last error is returned.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= p.MaxRetries {
			return fmt.Errorf("after %d attempts: %w", attempt+1, err)
		}
		t := time.NewTimer(p.Delay(attempt + 1))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}
