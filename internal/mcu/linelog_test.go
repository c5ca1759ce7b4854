package mcu

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, out *bytes.Buffer) []string {
	t.Helper()
	var lines []string
	for _, raw := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if raw == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			t.Fatalf("decode log record: %v", err)
		}
		line, _ := record["line"].(string)
		lines = append(lines, line)
	}
	return lines
}

func TestLineLoggerSplitsOnNewlines(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w := newLineLogger(logger, "stdout")

	_, _ = w.Write([]byte("imu ready\npart"))
	_, _ = w.Write([]byte("ial line\n\n"))

	lines := decodeLines(t, &out)
	if len(lines) != 2 || lines[0] != "imu ready" || lines[1] != "partial line" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestLineLoggerBoundsUnterminatedOutput(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w := newLineLogger(logger, "stderr")

	chunk := bytes.Repeat([]byte("x"), 1000)
	for i := 0; i < 10; i++ {
		if n, err := w.Write(chunk); err != nil || n != len(chunk) {
			t.Fatalf("Write returned %d, %v", n, err)
		}
	}

	if len(w.buf) >= maxLineBytes {
		t.Fatalf("buffer grew to %d bytes", len(w.buf))
	}
	lines := decodeLines(t, &out)
	if len(lines) != 2 || len(lines[0]) != maxLineBytes || len(lines[1]) != maxLineBytes {
		t.Fatalf("expected two capped lines, got %d", len(lines))
	}
	if len(w.buf) != 10000-2*maxLineBytes {
		t.Fatalf("unexpected remainder %d", len(w.buf))
	}
}
