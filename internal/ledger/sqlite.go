package ledger

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	version TEXT NOT NULL UNIQUE,
	outcome TEXT NOT NULL,
	mse REAL NOT NULL,
	previous_version TEXT NOT NULL DEFAULT '',
	artifact_key TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// fixed width so that created_at sorts as text
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite stores entries in a single table of a local database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = "ledger.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, eris.Wrap(err, "ledger: create dirs")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: open sqlite")
	}
	// single connection so writers never see SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "ledger: create submissions table")
	}
	return &SQLite{db: db}, nil
}

// Record inserts e.
func (s *SQLite) Record(ctx context.Context, e Entry) error {
	e = normalize(e)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, version, outcome, mse, previous_version, artifact_key, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Version, e.Outcome, e.MSE, e.PreviousVersion, e.ArtifactKey, e.CreatedAt.Format(sqliteTimeLayout),
	)
	if err != nil {
		return eris.Wrapf(err, "ledger: insert %s", e.Version)
	}
	return nil
}

// List returns entries newest first.
func (s *SQLite) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version, outcome, mse, previous_version, artifact_key, created_at FROM submissions ORDER BY created_at DESC, version DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: select submissions")
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			id, stamp string
		)
		if err := rows.Scan(&id, &e.Version, &e.Outcome, &e.MSE, &e.PreviousVersion, &e.ArtifactKey, &stamp); err != nil {
			return nil, eris.Wrap(err, "ledger: scan submission")
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, eris.Wrapf(err, "ledger: parse id %q", id)
		}
		if e.CreatedAt, err = time.Parse(sqliteTimeLayout, stamp); err != nil {
			return nil, eris.Wrapf(err, "ledger: parse created_at %q", stamp)
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "ledger: iterate submissions")
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }
