package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.Info("hello", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "[info]") {
		t.Errorf("expected level marker in output, got %q", out)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("expected attribute in output, got %q", out)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf, JSON: true})

	l.Info("hello", "key", "value")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "hello" {
		t.Errorf("msg = %v, expected hello", rec["msg"])
	}
	if rec["key"] != "value" {
		t.Errorf("key = %v, expected value", rec["key"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf})

	l.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info should be suppressed at warn level, got %q", buf.String())
	}

	l.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("warn should be written, got %q", buf.String())
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be suppressed, got %q", buf.String())
	}

	l.SetLevel(LevelDebug)
	l.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug should be written after SetLevel, got %q", buf.String())
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.WithComponent("client").Info("ready")

	out := buf.String()
	if !strings.Contains(out, "client: ready") {
		t.Errorf("expected component header, got %q", out)
	}
}

func TestConsoleHandler_QuotesSpacedValues(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.Info("msg", "detail", "two words")

	if !strings.Contains(buf.String(), `detail="two words"`) {
		t.Errorf("expected quoted attribute, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", in, got, want)
		}
	}
}
