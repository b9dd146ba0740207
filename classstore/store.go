// Package classstore archives compiled classes in a SQLite database keyed by
// class name, alongside the content hash of each class's encoding.
package classstore

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/kitten/classfile"
)

var log = commonlog.GetLogger("kitten.classstore")

// ErrClassNotFound indicates the requested class isn't archived.
var ErrClassNotFound = errors.New("class not found")

// Entry describes an archived class without decoding it.
type Entry struct {
	Name    string
	Super   string
	Source  string
	Hash    string // hex SHA-256 of the encoding
	Size    int
	Updated time.Time
}

// Store is a class archive backed by one SQLite file.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the archive at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS classes (
		name    TEXT PRIMARY KEY,
		super   TEXT NOT NULL,
		source  TEXT NOT NULL,
		hash    TEXT NOT NULL,
		data    BLOB NOT NULL,
		updated INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened archive %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file of the archive.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save archives classes in one transaction, replacing classes of the same
// name. It reports how many classes changed content.
func (s *Store) Save(classes ...*classfile.Class) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	changed := 0
	now := time.Now().Unix()
	for _, c := range classes {
		data, err := classfile.Marshal(c)
		if err != nil {
			return 0, err
		}
		hash := c.Hash()
		sum := hex.EncodeToString(hash[:])

		var prev string
		err = tx.QueryRow("SELECT hash FROM classes WHERE name = ?", c.Name()).Scan(&prev)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return 0, fmt.Errorf("querying class %s: %w", c.Name(), err)
		case prev == sum:
			continue
		}

		_, err = tx.Exec(
			"INSERT OR REPLACE INTO classes (name, super, source, hash, data, updated) VALUES (?, ?, ?, ?, ?, ?)",
			c.Name(), c.Super(), c.SourceFile(), sum, data, now,
		)
		if err != nil {
			return 0, fmt.Errorf("saving class %s: %w", c.Name(), err)
		}
		changed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing classes: %w", err)
	}
	log.Infof("archived %d classes (%d changed) in %s", len(classes), changed, s.path)
	return changed, nil
}

// Load decodes the class called name.
func (s *Store) Load(name string) (*classfile.Class, error) {
	var data []byte
	var sum string
	err := s.db.QueryRow("SELECT data, hash FROM classes WHERE name = ?", name).Scan(&data, &sum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", name, ErrClassNotFound)
		}
		return nil, fmt.Errorf("querying class: %w", err)
	}
	return decode(name, data, sum)
}

func decode(name string, data []byte, sum string) (*classfile.Class, error) {
	c, err := classfile.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	hash := c.Hash()
	if got := hex.EncodeToString(hash[:]); got != sum {
		return nil, fmt.Errorf("class %s is corrupt: hash %s, archived as %s", name, got[:12], sum)
	}
	return c, nil
}

// List returns the archived classes sorted by name.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query("SELECT name, super, source, hash, length(data), updated FROM classes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing classes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var updated int64
		if err := rows.Scan(&e.Name, &e.Super, &e.Source, &e.Hash, &e.Size, &updated); err != nil {
			return nil, fmt.Errorf("scanning class: %w", err)
		}
		e.Updated = time.Unix(updated, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LoadAll decodes every archived class, sorted by name.
func (s *Store) LoadAll() ([]*classfile.Class, error) {
	rows, err := s.db.Query("SELECT name, data, hash FROM classes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("loading classes: %w", err)
	}
	defer rows.Close()

	var classes []*classfile.Class
	for rows.Next() {
		var name, sum string
		var data []byte
		if err := rows.Scan(&name, &data, &sum); err != nil {
			return nil, fmt.Errorf("scanning class: %w", err)
		}
		c, err := decode(name, data, sum)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// Delete removes the class called name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM classes WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting class: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", name, ErrClassNotFound)
	}
	return nil
}
