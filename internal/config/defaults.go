package config

const (
	defaultConfigPath         = "~/.config/xrdisplay/config.toml"
	defaultStateDir           = "~/.local/share/xrdisplay"
	defaultLogDir             = "~/.local/share/xrdisplay/logs"
	defaultDriverDir          = "drivers"
	defaultPCIRoot            = "/sys/devices/pci0000:00"
	defaultDebugfsDRIRoot     = "/sys/kernel/debug/dri"
	defaultLspciBinary        = "lspci"
	defaultSocketEnv          = "UNREALXR_NREAL_DRIVER_SOCK"
	defaultMaxMessageBytes    = 64 * 1024
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultHotplugWaitSeconds = 0
)

// DefaultDrivers maps glasses manufacturer IDs to vendor driver executables.
func DefaultDrivers() map[string]string {
	return map[string]string{
		"MRG": "xreal_ar_driver",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			DriverDir: defaultDriverDir,
		},
		Devices: Devices{
			PCIRoot:            defaultPCIRoot,
			DebugfsDRIRoot:     defaultDebugfsDRIRoot,
			LspciBinary:        defaultLspciBinary,
			HotplugWaitSeconds: defaultHotplugWaitSeconds,
		},
		MCU: MCU{
			Enabled:         true,
			SocketEnv:       defaultSocketEnv,
			MaxMessageBytes: defaultMaxMessageBytes,
			Drivers:         DefaultDrivers(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
