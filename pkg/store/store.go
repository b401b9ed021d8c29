// Package store persists project documents in a single SQLite file. A
// design row holds a whole encoded document; the presets table keeps the
// VarPresets element of a design on its own so it can be applied to other
// designs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// DefaultPath is used when Open is given an empty path.
const DefaultPath = "spar.db"

// ErrNotFound is returned for a missing design or preset row.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS designs (
	name     TEXT PRIMARY KEY,
	document BLOB NOT NULL,
	updated  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS presets (
	design  TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	updated INTEGER NOT NULL
);`

// Entry describes one stored design.
type Entry struct {
	Name    string
	Size    int
	Updated time.Time
}

// Store is a handle on the database file.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("store: create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create tables: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// PutDesign inserts or replaces the document stored under name.
func (s *Store) PutDesign(ctx context.Context, name string, doc []byte) error {
	if name == "" {
		return errors.New("store: empty design name")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO designs(name, document, updated) VALUES(?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET document=excluded.document, updated=excluded.updated`,
		name, doc, s.now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("store: put design %s: %w", name, err)
	}
	return nil
}

// GetDesign returns the document stored under name.
func (s *Store) GetDesign(ctx context.Context, name string) ([]byte, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT document FROM designs WHERE name = ?`, name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: design %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get design %s: %w", name, err)
	}
	return doc, nil
}

// ListDesigns returns every design ordered by name.
func (s *Store) ListDesigns(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, length(document), updated FROM designs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list designs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var updated int64
		if err := rows.Scan(&e.Name, &e.Size, &updated); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		e.Updated = time.Unix(updated, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteDesign removes a design and its presets.
func (s *Store) DeleteDesign(ctx context.Context, name string) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx, `DELETE FROM designs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("store: delete design %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: design %s: %w", name, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM presets WHERE design = ?`, name); err != nil {
		return fmt.Errorf("store: delete presets %s: %w", name, err)
	}
	return tx.Commit()
}

// PutPresets stores the encoded preset element of design.
func (s *Store) PutPresets(ctx context.Context, design string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO presets(design, payload, updated) VALUES(?, ?, ?)
		 ON CONFLICT(design) DO UPDATE SET payload=excluded.payload, updated=excluded.updated`,
		design, payload, s.now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("store: put presets %s: %w", design, err)
	}
	return nil
}

// GetPresets returns the preset element stored for design.
func (s *Store) GetPresets(ctx context.Context, design string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM presets WHERE design = ?`, design).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: presets %s: %w", design, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get presets %s: %w", design, err)
	}
	return payload, nil
}
