package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	dumpDirName   = "dumps"
	dumpPattern   = "*.bin"
	dumpRetention = 14 * 24 * time.Hour
)

// writeDumps stores the descriptor read from the connector and the patched
// one written to the kernel so an override can be inspected after the fact.
func writeDumps(dir, runID, connector string, original, patched []byte) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create dump dir: %w", err)
	}
	base := fmt.Sprintf("%s-%s", runID, connector)
	originalPath := filepath.Join(dir, base+"-original.bin")
	patchedPath := filepath.Join(dir, base+"-patched.bin")
	if err := os.WriteFile(originalPath, original, 0o644); err != nil {
		return "", "", fmt.Errorf("write original edid: %w", err)
	}
	if err := os.WriteFile(patchedPath, patched, 0o644); err != nil {
		return "", "", fmt.Errorf("write patched edid: %w", err)
	}
	return originalPath, patchedPath, nil
}
