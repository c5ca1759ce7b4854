package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"xrdisplay/internal/deps"
	"xrdisplay/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Glasses", statusError, "Not detected", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Glasses:", "[ERROR] Not detected")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Glasses", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "lspci", Available: false},
		{Name: "MRG driver", Available: true, Command: "/opt/xreal_ar_driver", Optional: true},
		{Name: "VIT driver", Available: false, Optional: true, Detail: "driver not found"},
	}
	lines, required := dependencyLines(statuses, false)
	if required != 1 {
		t.Fatalf("expected 1 missing required dependency, got %d", required)
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[ERROR] not available") {
		t.Fatalf("expected error detail in first line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] Ready (command: /opt/xreal_ar_driver)") {
		t.Fatalf("expected ready detail in second line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] driver not found") {
		t.Fatalf("expected warn detail in third line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "lspci, VIT driver") {
		t.Fatalf("expected missing summary, got %q", lines[3])
	}
}

func TestCheckLinesCountsFailures(t *testing.T) {
	lines, failed := checkLines([]preflight.Result{
		{Name: "State directory", Passed: true, Detail: "/tmp (read/write ok)"},
		{Name: "DRM debugfs", Detail: "not accessible"},
	}, false)
	if failed != 1 || len(lines) != 2 {
		t.Fatalf("unexpected result: failed=%d lines=%v", failed, lines)
	}
	if !strings.Contains(lines[1], "[ERROR] not accessible") {
		t.Fatalf("expected error line, got %q", lines[1])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
