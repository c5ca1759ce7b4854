package mcu

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrDriverNotFound indicates no executable driver exists for a vendor.
var ErrDriverNotFound = errors.New("mcu: driver not found")

// DriverLocator maps vendor ids to driver executables.
type DriverLocator struct {
	dir     string
	drivers map[string]string
}

// NewDriverLocator looks for drivers in dir first, then on PATH.
func NewDriverLocator(dir string, drivers map[string]string) *DriverLocator {
	table := make(map[string]string, len(drivers))
	for vendor, name := range drivers {
		table[vendor] = name
	}
	return &DriverLocator{dir: dir, drivers: table}
}

// DriverName returns the executable name registered for vendor.
func (l *DriverLocator) DriverName(vendor string) (string, bool) {
	name, ok := l.drivers[vendor]
	return name, ok && strings.TrimSpace(name) != ""
}

// Resolve returns the absolute path of vendor's driver.
func (l *DriverLocator) Resolve(vendor string) (string, error) {
	name, ok := l.DriverName(vendor)
	if !ok {
		return "", fmt.Errorf("%w: no driver registered for vendor %q", ErrDriverNotFound, vendor)
	}
	if l.dir != "" {
		candidate := filepath.Join(l.dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s not in %s or PATH", ErrDriverNotFound, name, l.dir)
	}
	return path, nil
}

func isExecutable(path string) bool {
	return unix.Access(path, unix.X_OK) == nil && !isDir(path)
}

func isDir(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFDIR
}
