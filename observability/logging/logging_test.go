package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewEmitsRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "padipayd", "test", slog.LevelInfo)
	logger.Info("ledger call committed", slog.String("call", "payments.send"), MaskField("phone", "+2348012345678"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for _, key := range []string{"timestamp", "severity", "message", "service", "env"} {
		if _, ok := line[key]; !ok {
			t.Fatalf("missing key %q in %v", key, line)
		}
	}
	if line["severity"] != "INFO" {
		t.Fatalf("unexpected severity %v", line["severity"])
	}
	if line["call"] != "payments.send" {
		t.Fatalf("allowlisted field rewritten: %v", line["call"])
	}
	if line["phone"] != RedactedValue {
		t.Fatalf("phone not redacted: %v", line["phone"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "padipayd", "", ParseLevel("warn"))
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info line written at warn level: %s", buf.String())
	}
	logger.Warn("shown")
	if buf.Len() == 0 {
		t.Fatalf("warn line not written")
	}
}

func TestMaskHelpers(t *testing.T) {
	if got := MaskPhone("+234 801-234-5678"); got != "***********78" {
		t.Fatalf("unexpected masked phone %q", got)
	}
	if got := MaskPhone("7"); got != RedactedValue {
		t.Fatalf("short phone should be fully redacted, got %q", got)
	}
	if got := MaskValue(" "); got != " " {
		t.Fatalf("empty value should pass through, got %q", got)
	}
	if !IsAllowlisted("Height") {
		t.Fatalf("height should be allowlisted")
	}
	if IsAllowlisted("token") {
		t.Fatalf("token must be masked")
	}
}
