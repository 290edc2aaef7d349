package store

import (
	"strings"
	"time"
)

// busyRetryAttempts bounds how many times a write is retried after
// SQLITE_BUSY/SQLITE_LOCKED; the busy_timeout pragma already absorbs
// most contention inside the driver, this is a backstop for the rest.
const busyRetryAttempts = 5

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "SQLITE_LOCKED") || strings.Contains(msg, "database is locked")
}

func withBusyRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		err = fn()
		if err == nil || !isBusyErr(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return err
}
