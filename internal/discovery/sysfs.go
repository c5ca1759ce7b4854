package discovery

import (
	"os"
	"path/filepath"
	"strings"
)

// Hierarchy exposes the DRM cards and connectors beneath a PCI controller.
type Hierarchy interface {
	Cards(address string) ([]string, error)
	Connectors(address, card string) ([]string, error)
	ReadDescriptor(address, card, connector string) ([]byte, error)
}

// SysfsHierarchy reads the DRM tree from sysfs.
type SysfsHierarchy struct {
	root string
}

// NewSysfsHierarchy returns a hierarchy rooted at the PCI root complex
// directory, normally /sys/devices/pci0000:00.
func NewSysfsHierarchy(root string) *SysfsHierarchy {
	return &SysfsHierarchy{root: root}
}

func (s *SysfsHierarchy) drmDir(address string) string {
	if strings.Count(address, ":") < 2 {
		address = "0000:" + address
	}
	return filepath.Join(s.root, address, "drm")
}

// Cards lists entries of the controller's drm directory whose name contains "card".
func (s *SysfsHierarchy) Cards(address string) ([]string, error) {
	return listMatching(s.drmDir(address), "card")
}

// Connectors lists entries of the card directory whose name contains the card name.
func (s *SysfsHierarchy) Connectors(address, card string) ([]string, error) {
	return listMatching(filepath.Join(s.drmDir(address), card), card)
}

// ReadDescriptor returns the raw EDID of connector. An empty result means no
// display is attached.
func (s *SysfsHierarchy) ReadDescriptor(address, card, connector string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.drmDir(address), card, connector, "edid"))
}

func listMatching(dir, needle string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if strings.Contains(entry.Name(), needle) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
