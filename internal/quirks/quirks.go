// Package quirks holds the static table of supported glasses and the manual
// capability overrides each model needs.
package quirks

import (
	"sort"
	"time"
)

// Quirks records per-model overrides. Zero integer fields mean the value is
// not declared and the self-reported capability is authoritative.
type Quirks struct {
	MaxWidth        int
	MaxHeight       int
	MaxRefresh      int
	SensorInitDelay time.Duration
	ZVectorDisabled bool
}

// Registry maps a PNP manufacturer id to model name to quirk record.
type Registry map[string]map[string]Quirks

// Default returns the built-in registry.
func Default() Registry {
	return Registry{
		"MRG": {
			"Air": {
				MaxWidth:        1920,
				MaxHeight:       1080,
				MaxRefresh:      120,
				SensorInitDelay: 10 * time.Second,
				ZVectorDisabled: true,
			},
		},
	}
}

// Lookup returns the quirk record for vendor and model.
func (r Registry) Lookup(vendor, model string) (Quirks, bool) {
	models, ok := r[vendor]
	if !ok {
		return Quirks{}, false
	}
	q, ok := models[model]
	return q, ok
}

// HasVendor reports whether vendor is a registry key.
func (r Registry) HasVendor(vendor string) bool {
	_, ok := r[vendor]
	return ok
}

// Vendors returns the registry keys in sorted order.
func (r Registry) Vendors() []string {
	out := make([]string, 0, len(r))
	for vendor := range r {
		out = append(out, vendor)
	}
	sort.Strings(out)
	return out
}

// Merge returns a new registry containing r overlaid with extra. Models in
// extra replace models of the same name in r.
func (r Registry) Merge(extra Registry) Registry {
	out := make(Registry, len(r)+len(extra))
	for _, src := range []Registry{r, extra} {
		for vendor, models := range src {
			dst, ok := out[vendor]
			if !ok {
				dst = make(map[string]Quirks, len(models))
				out[vendor] = dst
			}
			for model, q := range models {
				dst[model] = q
			}
		}
	}
	return out
}
