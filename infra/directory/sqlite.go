// Package directory provides persistent and in-memory responder directories.
package directory

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	coredirectory "github.com/telecare/oncall/core/directory"
	"github.com/telecare/oncall/core/model"
)

// SQLiteDirectory stores responders in a SQLite database.
type SQLiteDirectory struct {
	db *sql.DB
}

// NewSQLiteDirectory opens or creates the database at path and ensures
// schema.
func NewSQLiteDirectory(path string) (*SQLiteDirectory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS responders (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        language TEXT NOT NULL,
        address TEXT NOT NULL DEFAULT '',
        available INTEGER NOT NULL DEFAULT 1
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteDirectory{db: db}, nil
}

// Lookup returns available, reachable responders for the criterion.
func (d *SQLiteDirectory) Lookup(ctx context.Context, c coredirectory.Criterion) ([]model.Responder, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, language, address FROM responders
         WHERE language = ? AND available = 1 AND address != '' ORDER BY name`,
		c.Language)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Responder
	for rows.Next() {
		var r model.Responder
		if err := rows.Scan(&r.ID, &r.Name, &r.Language, &r.Address); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

// InvalidateAddress clears the stored delivery address for the responder.
func (d *SQLiteDirectory) InvalidateAddress(ctx context.Context, responderID string) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE responders SET address = '' WHERE id = ?`, responderID)
	return err
}

// Upsert inserts or replaces a responder entry.
func (d *SQLiteDirectory) Upsert(ctx context.Context, e coredirectory.Entry) error {
	if e.ID == "" {
		return fmt.Errorf("responder id is required")
	}
	avail := 0
	if e.Available {
		avail = 1
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO responders (id, name, language, address, available)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
           name = excluded.name,
           language = excluded.language,
           address = excluded.address,
           available = excluded.available`,
		e.ID, e.Name, e.Language, e.Address, avail)
	return err
}

// SetAvailability toggles whether the responder may receive invitations.
func (d *SQLiteDirectory) SetAvailability(ctx context.Context, responderID string, available bool) error {
	avail := 0
	if available {
		avail = 1
	}
	res, err := d.db.ExecContext(ctx,
		`UPDATE responders SET available = ? WHERE id = ?`, avail, responderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("unknown responder %s", responderID)
	}
	return nil
}

// List returns every directory entry.
func (d *SQLiteDirectory) List(ctx context.Context) ([]coredirectory.Entry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, language, address, available FROM responders ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []coredirectory.Entry
	for rows.Next() {
		var (
			e     coredirectory.Entry
			avail int
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Language, &e.Address, &avail); err != nil {
			return nil, err
		}
		e.Available = avail == 1
		res = append(res, e)
	}
	return res, rows.Err()
}

// Close closes the underlying database.
func (d *SQLiteDirectory) Close() error { return d.db.Close() }
