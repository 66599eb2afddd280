package sqlite

import (
	"database/sql"
	"net/url"

	_ "modernc.org/sqlite"
)

const snapshotSchema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id TEXT NOT NULL,
		scan_timestamp TIMESTAMP NOT NULL,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_tenant ON snapshots (tenant_id, id);
`

type Settings struct {
	DbPath string
}

// NewDB opens (and if necessary creates) the snapshot database.
// Pragmas ride on the DSN so every pooled connection gets them.
func NewDB(settings Settings) (*sql.DB, error) {
	dsn := settings.DbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// sqlite behaves best with a single writer connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
