package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xrdisplay/internal/discovery"
	"xrdisplay/internal/testsupport"
)

type stubBus []string

func (b stubBus) VGAControllers(context.Context) ([]string, error) { return b, nil }

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOverrideRootMissing(t *testing.T) {
	result := CheckOverrideRoot("debugfs", filepath.Join(t.TempDir(), "dri"))
	if result.Passed {
		t.Fatal("expected failure for missing debugfs root")
	}
	if !strings.Contains(result.Detail, "mount debugfs") {
		t.Fatalf("expected mount hint, got %q", result.Detail)
	}
}

func TestRunAllChecksConfiguredRoots(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	testsupport.NewSysfs(t, cfg.Devices.PCIRoot)
	if err := os.MkdirAll(cfg.Devices.DebugfsDRIRoot, 0o755); err != nil {
		t.Fatalf("mkdir debugfs: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d: %#v", len(results), results)
	}
	for _, r := range results {
		if !r.Passed {
			t.Fatalf("expected %s to pass: %s", r.Name, r.Detail)
		}
	}

	cfg.MCU.Enabled = false
	if got := len(RunAll(context.Background(), cfg)); got != 3 {
		t.Fatalf("expected socket check skipped with MCU disabled, got %d results", got)
	}
}

func TestCheckSystemDepsIncludesDriversWhenEnabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("lspci"))

	results := CheckSystemDeps(cfg)
	if len(results) != 2 {
		t.Fatalf("expected lspci and one driver, got %#v", results)
	}
	if results[0].Name != "lspci" || !results[0].Available {
		t.Fatalf("expected stubbed lspci available, got %#v", results[0])
	}
	if results[1].Name != "MRG driver" || results[1].Available {
		t.Fatalf("expected MRG driver missing, got %#v", results[1])
	}

	cfg.MCU.Enabled = false
	if got := len(CheckSystemDeps(cfg)); got != 1 {
		t.Fatalf("expected only lspci with MCU disabled, got %d", got)
	}
}

func TestProbeDisplayReportsGlasses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.NewSysfs(t, cfg.Devices.PCIRoot).AddConnector("00:02.0", "card1", "DP-1",
		testsupport.BuildEDID("MRG", "Air", testsupport.Timing{Width: 1920, Height: 1080, Refresh: 60}))

	probe := probeDisplay(context.Background(), cfg, stubBus{"00:02.0"}, nil)
	if !probe.Detected {
		t.Fatalf("expected glasses detected, got %v", probe.Err)
	}
	if got := probe.DisplayDetail(); got != "MRG Air on card1-DP-1, 1920x1080@60" {
		t.Fatalf("unexpected detail %q", got)
	}
	if !probe.Result().Passed {
		t.Fatal("expected passing result")
	}
}

func TestProbeDisplayWithoutGlasses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.NewSysfs(t, cfg.Devices.PCIRoot)

	probe := probeDisplay(context.Background(), cfg, stubBus{"00:02.0"}, nil)
	if probe.Detected || !errors.Is(probe.Err, discovery.ErrNoSupportedDevice) {
		t.Fatalf("expected no device, got %#v", probe)
	}
	if probe.DisplayDetail() != "No supported glasses detected" {
		t.Fatalf("unexpected detail %q", probe.DisplayDetail())
	}
}
