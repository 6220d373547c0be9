package config

import (
	"testing"
	"time"
)

func TestEnvHelpersFallBackOnBadValues(t *testing.T) {
	t.Setenv("X_STR", "")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_INT", "lots")
	t.Setenv("X_DUR", "soon")

	if got := envStr("X_STR", "dflt"); got != "dflt" {
		t.Fatalf("envStr = %q, want dflt", got)
	}
	if got := envBool("X_BOOL", true); !got {
		t.Fatalf("envBool should keep the default on unrecognized input")
	}
	if got := envInt("X_INT", 7); got != 7 {
		t.Fatalf("envInt = %d, want 7", got)
	}
	if got := envDur("X_DUR", time.Minute); got != time.Minute {
		t.Fatalf("envDur = %v, want 1m", got)
	}
}

func TestEnvHelpersParseSetValues(t *testing.T) {
	t.Setenv("X_BOOL", "off")
	t.Setenv("X_INT", "42")
	t.Setenv("X_DUR", "250ms")

	if envBool("X_BOOL", true) {
		t.Fatalf(`envBool("off") should be false`)
	}
	if got := envInt("X_INT", 7); got != 42 {
		t.Fatalf("envInt = %d, want 42", got)
	}
	if got := envDur("X_DUR", time.Minute); got != 250*time.Millisecond {
		t.Fatalf("envDur = %v, want 250ms", got)
	}
}
