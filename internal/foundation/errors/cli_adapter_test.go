package errors

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("workers must be >= 1").Build(), expected: 2},
		{name: "config", err: ConfigError("bad yaml").Build(), expected: 7},
		{name: "cache locked", err: NewError(CategoryLock, "cache locked").Fatal().Build(), expected: 9},
		{name: "traversal", err: NewError(CategoryTraversal, "root missing").Fatal().Build(), expected: 11},
		{name: "worker", err: WorkerError("shard 2 failed").Build(), expected: 11},
		{name: "internal", err: InternalError("unexpected").Build(), expected: 10},
		{name: "unclassified", err: errors.New("unknown"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	err := WrapError(errors.New("no such file"), CategoryConfig, "load config").Fatal().UserAction().Build()

	msg := quiet.FormatError(err)
	if !strings.Contains(msg, "load config: no such file") {
		t.Errorf("unexpected message %q", msg)
	}
	if !strings.Contains(msg, "check your configuration") {
		t.Errorf("expected user action hint in %q", msg)
	}
	if !strings.Contains(verbose.FormatError(err), "[config:fatal]") {
		t.Errorf("verbose output should include classification")
	}
	if quiet.FormatError(nil) != "" {
		t.Error("nil error should format to empty string")
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var out, logs bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(BuildError("build failed").WithContext("failed", 2).Build())

	if code != 11 {
		t.Errorf("expected exit code 11, got %d", code)
	}
	if !strings.Contains(out.String(), "build failed") {
		t.Errorf("expected message on stderr, got %q", out.String())
	}
	if !strings.Contains(logs.String(), "failed=2") {
		t.Errorf("expected context in log output, got %q", logs.String())
	}
}
