package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pilebones/go-udev/netlink"
	"golang.org/x/sys/unix"

	"xrdisplay/internal/config"
	"xrdisplay/internal/deps"
	"xrdisplay/internal/mcu"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckReadableDir verifies that the directory exists and can be listed.
func CheckReadableDir(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckOverrideRoot verifies the debugfs dri directory is present and
// writable, which in practice means debugfs is mounted and we run as root.
func CheckOverrideRoot(name, path string) Result {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not accessible; mount debugfs and run as root)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if err := unix.Access(path, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not writable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable)", path)}
}

// CheckHotplug verifies a kernel uevent socket can be opened.
func CheckHotplug(_ context.Context) Result {
	const name = "Hotplug events"
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("netlink unavailable (%v)", err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: "udev netlink reachable"}
}

// CheckSystemDeps evaluates the external programs for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "lspci",
			Command:     strings.TrimSpace(cfg.Devices.LspciBinary),
			Description: "Required to find display controllers",
		},
	}
	results := deps.CheckBinaries(requirements)
	if cfg.MCU.Enabled {
		locator := mcu.NewDriverLocator(cfg.Paths.DriverDir, cfg.MCU.Drivers)
		results = append(results, deps.CheckDrivers(locator, cfg.MCU.Drivers)...)
	}
	return results
}
