package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout runs f with os.Stdout redirected to a pipe and returns the output.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	f()

	_ = w.Close()
	b, _ := io.ReadAll(r)
	_ = r.Close()
	return string(b)
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}

func TestLogger_IncludesStackAndServiceOnError(t *testing.T) {
	out := captureStdout(t, func() {
		log := New("trail-endpoint")
		log.Error().Stack().Err(errors.New("boom")).Msg("append failed")
	})

	line := lastNonEmptyLine(out)
	if line == "" {
		t.Fatalf("no output captured")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("invalid json log: %v\n%s", err, line)
	}
	if svc, ok := payload["service"].(string); !ok || svc != "trail-endpoint" {
		t.Fatalf("expected service=\"trail-endpoint\", got %v", payload["service"])
	}
	if lvl, ok := payload["level"].(string); !ok || lvl != "error" {
		t.Fatalf("expected level=\"error\", got %v", payload["level"])
	}
	if _, ok := payload["stack"]; !ok {
		t.Fatalf("expected stack field in error log: %s", line)
	}
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "ledger-worker", "warn")
	log.Info().Msg("dropped")
	log.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Fatalf("unexpected output: %s", out)
	}
}
