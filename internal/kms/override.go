// Package kms loads patched EDIDs into the kernel through the debugfs
// edid_override interface and removes them again.
package kms

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"xrdisplay/internal/logging"
)

// ErrOverrideUnavailable indicates the override file does not exist, usually
// because debugfs is not mounted or the connector is gone.
var ErrOverrideUnavailable = errors.New("kms: edid override unavailable")

const (
	overrideFile = "edid_override"
	resetCommand = "reset"
)

// Writer writes to /sys/kernel/debug/dri/<card>/<connector>/edid_override.
type Writer struct {
	root   string
	logger *slog.Logger
}

// NewWriter returns a writer rooted at the debugfs dri directory.
func NewWriter(root string, logger *slog.Logger) *Writer {
	return &Writer{root: root, logger: logging.NewComponentLogger(logger, "kms")}
}

// OverridePath returns the override file for a card index ("1") and
// connector ("DP-1").
func (w *Writer) OverridePath(cardIndex, connector string) string {
	return filepath.Join(w.root, strings.TrimPrefix(cardIndex, "card"), connector, overrideFile)
}

// Load replaces the EDID the kernel reports for the connector.
func (w *Writer) Load(cardIndex, connector string, descriptor []byte) error {
	path := w.OverridePath(cardIndex, connector)
	if err := writeOnce(path, descriptor); err != nil {
		return err
	}
	w.logger.Info("edid override loaded",
		logging.String(logging.FieldEventType, "edid_override_loaded"),
		logging.String(logging.FieldCard, cardIndex),
		logging.String(logging.FieldConnector, connector),
		logging.Int("bytes", len(descriptor)),
	)
	return nil
}

// Reset restores the connector's own EDID.
func (w *Writer) Reset(cardIndex, connector string) error {
	path := w.OverridePath(cardIndex, connector)
	if err := writeOnce(path, []byte(resetCommand)); err != nil {
		return err
	}
	w.logger.Info("edid override reset",
		logging.String(logging.FieldEventType, "edid_override_reset"),
		logging.String(logging.FieldCard, cardIndex),
		logging.String(logging.FieldConnector, connector),
	)
	return nil
}

// The kernel parses each write separately, so the payload goes out in one call.
func writeOnce(path string, payload []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrOverrideUnavailable, path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	n, err := f.Write(payload)
	closeErr := f.Close()
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if n != len(payload) {
		return fmt.Errorf("write %s: short write %d of %d bytes", path, n, len(payload))
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", path, closeErr)
	}
	return nil
}
