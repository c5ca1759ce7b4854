package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// Sysfs builds a fake PCI/DRM tree under root in the layout the kernel uses:
// <root>/0000:<address>/drm/<card>/<card>-<connector>/edid.
type Sysfs struct {
	t    testing.TB
	Root string
}

// NewSysfs returns a builder writing beneath root.
func NewSysfs(t testing.TB, root string) *Sysfs {
	t.Helper()
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir sysfs root: %v", err)
	}
	return &Sysfs{t: t, Root: root}
}

// CardDir returns the card directory for a short PCI address like 00:02.0.
func (s *Sysfs) CardDir(address, card string) string {
	return filepath.Join(s.Root, "0000:"+address, "drm", card)
}

// AddConnector writes the connector's edid file. A nil descriptor writes an
// empty file, as the kernel does for disconnected outputs.
func (s *Sysfs) AddConnector(address, card, connector string, descriptor []byte) string {
	s.t.Helper()
	dir := filepath.Join(s.CardDir(address, card), card+"-"+connector)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.t.Fatalf("mkdir connector: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "edid"), descriptor, 0o644); err != nil {
		s.t.Fatalf("write edid: %v", err)
	}
	// Non-connector siblings present on real systems.
	for _, sibling := range []string{"power", "device"} {
		if err := os.MkdirAll(filepath.Join(s.CardDir(address, card), sibling), 0o755); err != nil {
			s.t.Fatalf("mkdir %s: %v", sibling, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(s.Root, "0000:"+address, "drm", "renderD128"), 0o755); err != nil {
		s.t.Fatalf("mkdir render node: %v", err)
	}
	return dir
}

// AddOverrideFile creates the debugfs edid_override file for a card index
// ("1") and connector under root and returns its path.
func AddOverrideFile(t testing.TB, root, cardIndex, connector string) string {
	t.Helper()
	dir := filepath.Join(root, cardIndex, connector)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir debugfs connector: %v", err)
	}
	path := filepath.Join(dir, "edid_override")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("create edid_override: %v", err)
	}
	return path
}
