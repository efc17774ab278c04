package db

import (
	"strings"

	"github.com/teranos/capgen/errors"
)

// ErrDatabaseClosed marks writes attempted after the handle was closed,
// typically by a model call that finished during shutdown.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err is ErrDatabaseClosed or the driver's
// own "database is closed" error, which database/sql returns unwrapped.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrDatabaseClosed) || strings.Contains(err.Error(), "database is closed")
}
