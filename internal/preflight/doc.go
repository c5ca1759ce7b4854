// Package preflight provides readiness checks for the kernel interfaces,
// filesystem paths, and external programs xrdisplay depends on.
//
// The CLI "xrdisplay doctor" command runs RunAll and CheckSystemDeps and
// renders the results; ProbeDisplay adds a one-line summary of the glasses
// discovery would pick. Checks for disabled features are skipped.
package preflight
