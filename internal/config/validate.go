package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOverrides(); err != nil {
		return err
	}
	if err := c.validateMCU(); err != nil {
		return err
	}
	if err := c.validateQuirks(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOverrides() error {
	if err := ensureNonNegativeMap(map[string]int{
		"overrides.width":        c.Overrides.Width,
		"overrides.height":       c.Overrides.Height,
		"overrides.refresh_rate": c.Overrides.RefreshRate,
	}); err != nil {
		return err
	}
	if (c.Overrides.Width == 0) != (c.Overrides.Height == 0) {
		return errors.New("overrides.width and overrides.height must be set together")
	}
	return nil
}

func (c *Config) validateMCU() error {
	if c.MCU.MaxMessageBytes <= 0 {
		return errors.New("mcu.max_message_bytes must be positive")
	}
	if c.MCU.SocketEnv == "" {
		return errors.New("mcu.socket_env must be set")
	}
	return nil
}

func (c *Config) validateQuirks() error {
	for i, q := range c.Quirks {
		if q.Vendor == "" || q.Model == "" {
			return fmt.Errorf("quirks[%d]: vendor and model must be set", i)
		}
		if len(q.Vendor) != 3 {
			return fmt.Errorf("quirks[%d]: vendor %q must be a 3-letter PNP manufacturer id", i, q.Vendor)
		}
		if err := ensureNonNegativeMap(map[string]int{
			fmt.Sprintf("quirks[%d].max_width", i):         q.MaxWidth,
			fmt.Sprintf("quirks[%d].max_height", i):        q.MaxHeight,
			fmt.Sprintf("quirks[%d].max_refresh", i):       q.MaxRefresh,
			fmt.Sprintf("quirks[%d].sensor_init_delay", i): q.SensorInitDelaySeconds,
		}); err != nil {
			return err
		}
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
