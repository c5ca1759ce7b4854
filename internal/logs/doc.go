// Package logs reads the persistent xrdisplay log for `xrdisplay logs`.
//
// Tail returns the last lines of the file, optionally filtered by substring,
// and the offset to resume from; Follow polls from that offset until the
// context ends. A missing file is treated as empty so the command can start
// before the first session has written anything.
package logs
