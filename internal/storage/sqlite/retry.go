package sqlite

import (
	"strings"
	"time"

	"github.com/banshee-data/trackscan/internal/monitoring"
)

var logf = monitoring.Component("store")

const (
	busyMaxAttempts  = 5
	busyInitialDelay = 10 * time.Millisecond
)

// isSQLiteBusy reports whether err is a transient lock error from SQLite.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn, retrying with exponential backoff while SQLite
// reports the database as locked. Other errors are returned immediately.
func retryOnBusy(fn func() error) error {
	delay := busyInitialDelay
	var err error
	for attempt := 1; attempt <= busyMaxAttempts; attempt++ {
		err = fn()
		if !isSQLiteBusy(err) {
			return err
		}
		if attempt == busyMaxAttempts {
			break
		}
		logf("database busy, retrying in %v (attempt %d/%d)", delay, attempt, busyMaxAttempts)
		time.Sleep(delay)
		delay *= 2
	}
	return err
}
