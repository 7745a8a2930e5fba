// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibcache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// SQLiteStore keeps the cache in a SQLite database. Entry order is kept in
// the position column.
type SQLiteStore struct {
	path    string
	db      *sql.DB
	openErr error
}

// OpenSQLite opens or creates the database at path and its schema. A file
// that is not a usable database does not fail the open: Load reports the
// error, and the next Save replaces the file with a fresh database.
func OpenSQLite(path string) *SQLiteStore {
	s := &SQLiteStore{path: path}
	s.openErr = s.open()
	return s
}

func (s *SQLiteStore) open() error {
	db, err := sql.Open("sqlite3", s.path+"?_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	s.db = db
	if err := s.createSchema(); err != nil {
		db.Close()
		s.db = nil
		return fmt.Errorf("creating schema in %s: %w", s.path, err)
	}
	return nil
}

// recreate removes the unusable database and its side files and opens an
// empty one in their place.
func (s *SQLiteStore) recreate() error {
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm", s.path + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	if err := s.open(); err != nil {
		return err
	}
	s.openErr = nil
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cache_info (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			info TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			url TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			fetched TEXT NOT NULL,
			bibtex TEXT NOT NULL,
			csl TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_position ON entries(position)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load() (*File, error) {
	if s.db == nil {
		return nil, s.openErr
	}
	f := &File{URLs: orderedmap.New[string, Record]()}

	err := s.db.QueryRow(`SELECT info FROM cache_info WHERE id = 1`).Scan(&f.Info)
	if err == sql.ErrNoRows {
		f.Info = Banner
	} else if err != nil {
		return nil, fmt.Errorf("reading cache info: %w", err)
	}

	rows, err := s.db.Query(`SELECT url, fetched, bibtex, csl FROM entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url, fetched, bib, item string
		if err := rows.Scan(&url, &fetched, &bib, &item); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		var rec Record
		if rec.FetchedAt, err = time.Parse(time.RFC3339Nano, fetched); err != nil {
			return nil, fmt.Errorf("parsing fetch time for %s: %w", url, err)
		}
		if err := json.Unmarshal([]byte(bib), &rec.RawSource); err != nil {
			return nil, fmt.Errorf("decoding bibtex for %s: %w", url, err)
		}
		if err := json.Unmarshal([]byte(item), &rec.Parsed); err != nil {
			return nil, fmt.Errorf("decoding csl for %s: %w", url, err)
		}
		f.URLs.Set(url, rec)
	}
	return f, rows.Err()
}

// Save replaces the stored cache with f in one transaction.
func (s *SQLiteStore) Save(f *File) error {
	if s.db == nil {
		if err := s.recreate(); err != nil {
			return err
		}
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO cache_info (id, info) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET info = excluded.info`, f.Info,
	); err != nil {
		return fmt.Errorf("writing cache info: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO entries (url, position, fetched, bibtex, csl) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	pos := 0
	for pair := f.URLs.Oldest(); pair != nil; pair = pair.Next() {
		bib, err := json.Marshal(pair.Value.RawSource)
		if err != nil {
			return fmt.Errorf("encoding bibtex for %s: %w", pair.Key, err)
		}
		item, err := json.Marshal(pair.Value.Parsed)
		if err != nil {
			return fmt.Errorf("encoding csl for %s: %w", pair.Key, err)
		}
		fetched := pair.Value.FetchedAt.UTC().Format(time.RFC3339Nano)
		if _, err := stmt.Exec(pair.Key, pos, fetched, string(bib), string(item)); err != nil {
			return fmt.Errorf("inserting %s: %w", pair.Key, err)
		}
		pos++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache: %w", err)
	}
	return nil
}
