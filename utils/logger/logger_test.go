package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConfigureLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "WARN", Output: &buf})
	defer Configure(Config{Level: "info", Pretty: true})

	Info().Msg("hidden")
	Warn().Str("key", "value").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "shown" || entry["key"] != "value" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestConfigureUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "chatty", Output: &buf})
	defer Configure(Config{Level: "info", Pretty: true})

	Debug().Msg("hidden")
	Info().Msg("shown")
	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
}
