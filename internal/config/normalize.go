package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDevices()
	c.normalizeMCU()
	c.normalizeQuirks()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DriverDir) == "" {
		c.Paths.DriverDir = defaultDriverDir
	}
	if c.Paths.DriverDir, err = expandPath(c.Paths.DriverDir); err != nil {
		return fmt.Errorf("paths.driver_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDevices() {
	if !c.Devices.AllowUnsupported {
		if value, ok := os.LookupEnv("XRDISPLAY_ALLOW_UNSUPPORTED"); ok {
			if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
				c.Devices.AllowUnsupported = parsed
			}
		}
	}
	c.Devices.PCIRoot = strings.TrimRight(strings.TrimSpace(c.Devices.PCIRoot), "/")
	if c.Devices.PCIRoot == "" {
		c.Devices.PCIRoot = defaultPCIRoot
	}
	c.Devices.DebugfsDRIRoot = strings.TrimRight(strings.TrimSpace(c.Devices.DebugfsDRIRoot), "/")
	if c.Devices.DebugfsDRIRoot == "" {
		c.Devices.DebugfsDRIRoot = defaultDebugfsDRIRoot
	}
	c.Devices.LspciBinary = strings.TrimSpace(c.Devices.LspciBinary)
	if c.Devices.LspciBinary == "" {
		c.Devices.LspciBinary = defaultLspciBinary
	}
	if c.Devices.HotplugWaitSeconds < 0 {
		c.Devices.HotplugWaitSeconds = 0
	}
}

func (c *Config) normalizeMCU() {
	c.MCU.SocketEnv = strings.TrimSpace(c.MCU.SocketEnv)
	if c.MCU.SocketEnv == "" {
		c.MCU.SocketEnv = defaultSocketEnv
	}
	if c.MCU.MaxMessageBytes <= 0 {
		c.MCU.MaxMessageBytes = defaultMaxMessageBytes
	}
	drivers := DefaultDrivers()
	for vendor, name := range c.MCU.Drivers {
		vendor = strings.ToUpper(strings.TrimSpace(vendor))
		name = strings.TrimSpace(name)
		if vendor == "" {
			continue
		}
		if name == "" {
			delete(drivers, vendor)
			continue
		}
		drivers[vendor] = name
	}
	c.MCU.Drivers = drivers
}

func (c *Config) normalizeQuirks() {
	quirks := c.Quirks[:0]
	for _, q := range c.Quirks {
		q.Vendor = strings.ToUpper(strings.TrimSpace(q.Vendor))
		q.Model = strings.TrimSpace(q.Model)
		quirks = append(quirks, q)
	}
	c.Quirks = quirks
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		if value, ok := os.LookupEnv("XRDISPLAY_LOG_LEVEL"); ok {
			c.Logging.Level = strings.ToLower(strings.TrimSpace(value))
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
