// Package sqlstore keeps named outline documents in a SQLite database.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dshills/outliner/internal/outline/persist"
)

// Schema holds the document tables. Call Store.Init or apply manually.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	name TEXT PRIMARY KEY,
	saved_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	doc TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	id TEXT NOT NULL,
	headline TEXT NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (doc, id)
);
CREATE INDEX IF NOT EXISTS idx_records_seq ON records(doc, seq);
CREATE TABLE IF NOT EXISTS children (
	doc TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
	parent TEXT NOT NULL,
	pos INTEGER NOT NULL,
	child TEXT NOT NULL,
	PRIMARY KEY (doc, parent, pos)
);
CREATE TABLE IF NOT EXISTS roots (
	doc TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
	pos INTEGER NOT NULL,
	id TEXT NOT NULL,
	PRIMARY KEY (doc, pos)
);
CREATE TABLE IF NOT EXISTS attributes (
	doc TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
	node TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (doc, node, key)
);
`

// ErrNotFound is returned when a named document does not exist.
var ErrNotFound = errors.New("sqlstore: document not found")

// Info describes a stored document.
type Info struct {
	Name    string
	SavedAt time.Time
	Nodes   int
}

// Store reads and writes documents.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at path and applies the standard pragmas. The
// pool is limited to one connection so that pragmas and ":memory:"
// databases behave consistently.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// New returns a Store backed by db. Cascading deletes need foreign keys
// enabled, which Open does.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Init creates the tables if they don't exist.
func (s *Store) Init() error {
	_, err := s.db.Exec(Schema)
	return err
}

// Save stores doc under name, replacing any previous version. The document
// is validated first.
func (s *Store) Save(ctx context.Context, name string, doc persist.Document) error {
	if err := persist.Validate(doc); err != nil {
		return err
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (name, saved_at) VALUES (?, ?)`,
			name, s.now().UnixMilli()); err != nil {
			return err
		}

		rootStmt, err := tx.PrepareContext(ctx, `INSERT INTO roots (doc, pos, id) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer rootStmt.Close()
		for i, id := range doc.Roots {
			if _, err := rootStmt.ExecContext(ctx, name, i, id); err != nil {
				return err
			}
		}

		recStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO records (doc, seq, id, headline, body) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer recStmt.Close()
		kidStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO children (doc, parent, pos, child) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer kidStmt.Close()
		attrStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO attributes (doc, node, key, value) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer attrStmt.Close()

		for seq, r := range doc.Records {
			if _, err := recStmt.ExecContext(ctx, name, seq, r.ID, r.Headline, r.Body); err != nil {
				return fmt.Errorf("record %s: %w", r.ID, err)
			}
			for pos, cid := range r.Children {
				if _, err := kidStmt.ExecContext(ctx, name, r.ID, pos, cid); err != nil {
					return err
				}
			}
			for k, v := range r.Attributes {
				if _, err := attrStmt.ExecContext(ctx, name, r.ID, k, v); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Load reads the document stored under name.
func (s *Store) Load(ctx context.Context, name string) (persist.Document, error) {
	var doc persist.Document
	err := s.tx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE name = ?`, name).Scan(&one)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if err != nil {
			return err
		}

		if doc.Roots, err = queryStrings(ctx, tx,
			`SELECT id FROM roots WHERE doc = ? ORDER BY pos`, name); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT id, headline, body FROM records WHERE doc = ? ORDER BY seq`, name)
		if err != nil {
			return err
		}
		index := make(map[string]int)
		for rows.Next() {
			var r persist.Record
			if err := rows.Scan(&r.ID, &r.Headline, &r.Body); err != nil {
				rows.Close()
				return err
			}
			index[r.ID] = len(doc.Records)
			doc.Records = append(doc.Records, r)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		rows, err = tx.QueryContext(ctx,
			`SELECT parent, child FROM children WHERE doc = ? ORDER BY parent, pos`, name)
		if err != nil {
			return err
		}
		for rows.Next() {
			var parent, child string
			if err := rows.Scan(&parent, &child); err != nil {
				rows.Close()
				return err
			}
			if i, ok := index[parent]; ok {
				doc.Records[i].Children = append(doc.Records[i].Children, child)
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}

		rows, err = tx.QueryContext(ctx,
			`SELECT node, key, value FROM attributes WHERE doc = ?`, name)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id, k, v string
			if err := rows.Scan(&id, &k, &v); err != nil {
				return err
			}
			if i, ok := index[id]; ok {
				r := &doc.Records[i]
				if r.Attributes == nil {
					r.Attributes = make(map[string]string)
				}
				r.Attributes[k] = v
			}
		}
		return rows.Err()
	})
	if err != nil {
		return persist.Document{}, err
	}
	return doc, nil
}

// List returns the stored documents ordered by name.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.name, d.saved_at, COUNT(r.id)
		FROM documents d LEFT JOIN records r ON r.doc = d.name
		GROUP BY d.name ORDER BY d.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		var ms int64
		if err := rows.Scan(&info.Name, &ms, &info.Nodes); err != nil {
			return nil, err
		}
		info.SavedAt = time.UnixMilli(ms)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes the named document.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func queryStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
