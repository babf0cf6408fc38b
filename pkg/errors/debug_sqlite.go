//go:build cgo

package errors

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

func dumpSQLite(err error, d *ErrorDump) {
	// go-sqlite3 returns its Error by value.
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return
	}
	d.DBEngine = "sqlite"
	d.SQLiteCode = int(liteErr.Code)
	d.SQLiteExtended = int(liteErr.ExtendedCode)
	d.SQLiteMessage = liteErr.Error()
	// SQLITE_BUSY and SQLITE_LOCKED clear once the other writer commits.
	if liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked {
		d.Retryable = true
	}
}
