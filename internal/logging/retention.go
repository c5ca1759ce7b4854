package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneDumps removes files in dir matching pattern that are older than
// maxAge. A non-positive maxAge disables pruning.
func PruneDumps(logger *slog.Logger, dir, pattern string, maxAge time.Duration) int {
	if maxAge <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pattern != "" {
			if matched, err := filepath.Match(pattern, entry.Name()); err != nil || !matched {
				continue
			}
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		fullPath := filepath.Join(dir, entry.Name())
		if err := os.Remove(fullPath); err != nil {
			WarnWithContext(logger, "dump prune failed; file remains", "dump_prune_failed",
				String("path", fullPath),
				Error(err),
				String(FieldErrorHint, "check file permissions on the state directory"),
				String(FieldImpact, "old EDID dump remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("dump pruned", String("path", fullPath), String(FieldEventType, "dump_pruned"))
		}
	}
	return removed
}
