package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", TraceLevel},
		{"DEBUG", DebugLevel},
		{"", InfoLevel},
		{"warning", WarnLevel},
		{"panic", ErrorLevel},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel(InfoLevel)

	SetLevel(WarnLevel)
	Info("[TEST] hidden %d", 1)
	Warn("[TEST] shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected info line to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[TEST] shown 2") {
		t.Fatalf("expected warn line in output, got %q", out)
	}
}

func TestTraceOnlyAtTraceLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel(InfoLevel)

	SetLevel(DebugLevel)
	Trace("first")
	if buf.Len() != 0 {
		t.Fatalf("expected no trace output at debug level, got %q", buf.String())
	}

	SetLevel(TraceLevel)
	Trace("second")
	if !strings.Contains(buf.String(), "[TRACE] second") {
		t.Fatalf("expected trace output, got %q", buf.String())
	}
}
