package config

import (
	"time"

	"xrdisplay/internal/quirks"
)

// QuirkRegistry returns the built-in registry overlaid with the [[quirks]]
// entries of this config. Entries missing a vendor or model are skipped.
func (c *Config) QuirkRegistry() quirks.Registry {
	declared := quirks.Registry{}
	for _, entry := range c.Quirks {
		if entry.Vendor == "" || entry.Model == "" {
			continue
		}
		models, ok := declared[entry.Vendor]
		if !ok {
			models = map[string]quirks.Quirks{}
			declared[entry.Vendor] = models
		}
		models[entry.Model] = quirks.Quirks{
			MaxWidth:        entry.MaxWidth,
			MaxHeight:       entry.MaxHeight,
			MaxRefresh:      entry.MaxRefresh,
			SensorInitDelay: time.Duration(entry.SensorInitDelaySeconds) * time.Second,
			ZVectorDisabled: entry.ZVectorDisabled,
		}
	}
	return quirks.Default().Merge(declared)
}
