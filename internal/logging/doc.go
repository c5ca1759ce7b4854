// Package logging assembles structured slog loggers and formatting helpers used
// across xrdisplay.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so discovery and MCU code can tag
// log lines with the glasses vendor and DRM connector. Every record emitted
// during a run carries the run_id recorded in the run history. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
