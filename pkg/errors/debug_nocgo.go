//go:build !cgo

package errors

// Without cgo the sqlite driver is a stub and never returns its own errors.
func dumpSQLite(error, *ErrorDump) {}
