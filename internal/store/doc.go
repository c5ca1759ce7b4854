// Package store keeps the override history in SQLite.
//
// Every EDID override loaded into the kernel is recorded with the run that
// applied it and released when the session tears it down. Rows that are still
// active at startup belong to a session that crashed; the session restores
// them before doing anything else.
package store
