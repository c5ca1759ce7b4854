package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	DriverDir string `toml:"driver_dir"`
}

// Devices contains configuration for display discovery and EDID overrides.
type Devices struct {
	AllowUnsupported   bool   `toml:"allow_unsupported"`
	PCIRoot            string `toml:"pci_root"`
	DebugfsDRIRoot     string `toml:"debugfs_dri_root"`
	LspciBinary        string `toml:"lspci_binary"`
	HotplugWaitSeconds int    `toml:"hotplug_wait_seconds"`
}

// Overrides replaces resolved display capabilities. Zero keeps the detected value.
type Overrides struct {
	Width       int `toml:"width"`
	Height      int `toml:"height"`
	RefreshRate int `toml:"refresh_rate"`
}

// MCU contains configuration for the glasses telemetry link.
type MCU struct {
	Enabled         bool              `toml:"enabled"`
	SocketEnv       string            `toml:"socket_env"`
	MaxMessageBytes int               `toml:"max_message_bytes"`
	Drivers         map[string]string `toml:"drivers"`
}

// Quirk declares capability overrides for a device model not covered by the
// built-in registry.
type Quirk struct {
	Vendor                 string `toml:"vendor"`
	Model                  string `toml:"model"`
	MaxWidth               int    `toml:"max_width"`
	MaxHeight              int    `toml:"max_height"`
	MaxRefresh             int    `toml:"max_refresh"`
	SensorInitDelaySeconds int    `toml:"sensor_init_delay"`
	ZVectorDisabled        bool   `toml:"z_vector_disabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for xrdisplay.
//
// Configuration sections by subsystem:
//   - Paths: state, log, and vendor driver directories
//   - Devices: sysfs/debugfs roots and unsupported device policy
//   - Overrides: manual resolution and refresh rate
//   - MCU: driver table and socket hand-off for head tracking
//   - Quirks: extra per-model capability records
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Devices   Devices   `toml:"devices"`
	Overrides Overrides `toml:"overrides"`
	MCU       MCU       `toml:"mcu"`
	Quirks    []Quirk   `toml:"quirks"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("xrdisplay.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StatePath joins name onto the state directory.
func (c *Config) StatePath(name string) string {
	return filepath.Join(c.Paths.StateDir, name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
