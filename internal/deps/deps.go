// Package deps reports whether the external programs xrdisplay shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"xrdisplay/internal/mcu"
)

// Requirement defines an external program xrdisplay relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements against PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckDrivers resolves the MCU driver of every vendor in drivers through
// locator, in vendor order. Drivers are optional: without one the display
// still works, only head tracking is lost.
func CheckDrivers(locator *mcu.DriverLocator, drivers map[string]string) []Status {
	vendors := make([]string, 0, len(drivers))
	for vendor := range drivers {
		vendors = append(vendors, vendor)
	}
	sort.Strings(vendors)

	results := make([]Status, 0, len(vendors))
	for _, vendor := range vendors {
		name := drivers[vendor]
		status := Status{
			Name:        vendor + " driver",
			Command:     name,
			Description: fmt.Sprintf("Head tracking for %s glasses", vendor),
			Optional:    true,
		}
		path, err := locator.Resolve(vendor)
		if err != nil {
			status.Detail = fmt.Sprintf("driver %q not found in driver dir or PATH", name)
		} else {
			status.Command = path
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}
