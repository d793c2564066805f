package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
		{"Stage", KeyStage, "scanning", Stage("scanning")},
		{"Asset", KeyAsset, "ui/button.png", Asset("ui/button.png")},
		{"Slug", KeySlug, "ui-button", Slug("ui-button")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Mode", KeyMode, "incremental", Mode("incremental")},
		{"Fingerprint", KeyFingerprint, "0123456789ab", Fingerprint("0123456789abcdef")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if v := Worker(3); v.Key != KeyWorker || v.Value.Int64() != 3 {
		t.Fatalf("Worker mismatch: %v", v)
	}
	if v := Count(7); v.Key != KeyCount {
		t.Fatalf("Count key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	if attr := Error(nil); attr.Key != KeyError || attr.Value.String() != "" {
		t.Fatalf("unexpected nil error attr: %v", attr)
	}
	if attr := Error(errors.New("boom")); attr.Value.String() != "boom" {
		t.Fatalf("unexpected error attr: %v", attr)
	}
}
