// Package main hosts the xrdisplay CLI entrypoint and command graph.
//
// The Cobra-based command tree runs a display session, inspects attached
// displays, patches EDID files offline, restores overrides left by a crashed
// session, prints the override history, and checks the host for the kernel
// interfaces and drivers a session needs. It centralizes configuration
// resolution and logger setup so subcommands can focus on output.
package main
