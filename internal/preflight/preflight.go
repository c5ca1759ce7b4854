package preflight

import (
	"context"
	"os"

	"xrdisplay/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// State directory holds the lock, override history and EDID dumps.
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckReadableDir("PCI sysfs root", cfg.Devices.PCIRoot))
	results = append(results, CheckOverrideRoot("DRM debugfs", cfg.Devices.DebugfsDRIRoot))

	if cfg.MCU.Enabled {
		results = append(results, CheckDirectoryAccess("Socket directory", os.TempDir()))
	}
	if cfg.Devices.HotplugWaitSeconds > 0 {
		results = append(results, CheckHotplug(ctx))
	}
	return results
}
