// Package config loads, normalizes, and validates xrdisplay configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// XRDISPLAY_ALLOW_UNSUPPORTED. The Config type centralizes every knob the
// session runner and CLI need: where sysfs and debugfs live, which driver
// executables serve which glasses vendor, per-model quirks declared by the
// user, and logging output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
