package image

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/avmcore/vm"
)

// Store keeps encoded snapshots in a SQLite database.
type Store struct {
	db  *sql.DB
	log commonlog.Logger
	mu  sync.Mutex
}

// StoredSnapshot identifies one row of the store.
type StoredSnapshot struct {
	ID    string
	Class string
}

// OpenStore opens (creating if needed) the snapshot database at path.
// The special path ":memory:" opens a private in-memory database.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: an in-memory database exists per connection, and
	// writers serialize anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		class TEXT NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, log: commonlog.GetLogger("avmcore.image")}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *Store) save(ex execer, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", snap.ID, err)
	}
	_, err = ex.Exec(
		"INSERT OR REPLACE INTO snapshots (id, class, data) VALUES (?, ?, ?)",
		snap.ID, snap.Class, data,
	)
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Save stores a snapshot, replacing any earlier one with the same id.
func (s *Store) Save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(s.db, snap); err != nil {
		return err
	}
	s.log.Debugf("saved %s (%s)", snap.ID, snap.Class)
	return nil
}

// Load retrieves a snapshot by object id.
func (s *Store) Load(id string) (*Snapshot, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM snapshots WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	return Decode(data)
}

// Delete removes a snapshot.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the stored snapshots of a class, or of every class when
// class is empty, ordered by id.
func (s *Store) List(class string) ([]StoredSnapshot, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if class == "" {
		rows, err = s.db.Query("SELECT id, class FROM snapshots ORDER BY id")
	} else {
		rows, err = s.db.Query("SELECT id, class FROM snapshots WHERE class = ? ORDER BY id", class)
	}
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var result []StoredSnapshot
	for rows.Next() {
		var ss StoredSnapshot
		if err := rows.Scan(&ss.ID, &ss.Class); err != nil {
			return nil, err
		}
		result = append(result, ss)
	}
	return result, rows.Err()
}

// SaveObject captures obj and every object reachable from its state and
// stores them in one transaction. It returns the number of snapshots
// written.
func (s *Store) SaveObject(obj *vm.Object) (int, error) {
	var snaps []*Snapshot
	seen := map[string]bool{obj.ID(): true}
	queue := []*vm.Object{obj}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		snap, refs, err := capture(next)
		if err != nil {
			return 0, err
		}
		snaps = append(snaps, snap)
		for _, ref := range refs {
			if !seen[ref.ID()] {
				seen[ref.ID()] = true
				queue = append(queue, ref)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	for _, snap := range snaps {
		if err := s.save(tx, snap); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.log.Debugf("saved %s with %d referenced objects", obj.ID(), len(snaps)-1)
	return len(snaps), nil
}

// LoadObject restores the object stored under id, and every object it
// refers to, into rt. Shared and cyclic references restore to the same
// object.
func (s *Store) LoadObject(rt *vm.Runtime, id string) (*vm.Object, error) {
	objs := make(map[string]*vm.Object)
	var resolve Resolver
	resolve = func(id string) (*vm.Object, error) {
		if obj, ok := objs[id]; ok {
			return obj, nil
		}
		snap, err := s.Load(id)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", id, err)
		}
		obj, err := revive(rt, snap)
		if err != nil {
			return nil, err
		}
		objs[id] = obj
		if err := fill(obj, snap, resolve); err != nil {
			return nil, err
		}
		return obj, nil
	}
	return resolve(id)
}
