package commands

import (
	"database/sql"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/db"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
)

// openDatabase opens and migrates the usage database. An empty dbPath
// falls back to am config, then capgen.db.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		path, err := am.GetDatabasePath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get database path")
		}
		dbPath = path
	}
	if dbPath == "" {
		dbPath = "capgen.db"
	}

	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}
