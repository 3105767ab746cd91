// Package sqlitestore implements the SQLite storage backend: one
// adjacency-list table with cascading deletes.
//
// Every row carries a flag disambiguating its representation: native
// scalar, mapping anchor, boolean (stored 0/1 but never conflated
// with integer 0/1) or serializer-packed object. All SQL for a store
// instance is serialized through one mutex; a single open transaction
// scopes everything between flushes, so Flush is a commit.
package sqlitestore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver with database/sql

	"github.com/go-ports/treevault/internal/serializer"
	"github.com/go-ports/treevault/internal/storage"
)

// Row flags.
const (
	flagNative  = 0
	flagMapping = 1
	flagBool    = 2
	flagPacked  = 3
)

// Kind coverage declared at backend registration. Booleans, mappings,
// sequences and registered objects go through extra encoding.
var (
	NativeKinds = []storage.Kind{
		storage.KindInt, storage.KindFloat, storage.KindString,
		storage.KindBytes, storage.KindNull,
	}
	ExtraKinds = []storage.Kind{
		storage.KindBool, storage.KindMapping, storage.KindSequence, storage.KindObject,
	}
)

// Store is the SQLite backend. It owns the database connection and
// the transaction running between flushes.
type Store struct {
	mu          sync.Mutex
	db          *sql.DB
	tx          *sql.Tx
	path        string
	serializers *serializer.Registry
	closed      bool
}

// Open opens (or creates) the database at path and initialises the
// schema. Parent directories are created as needed; ":memory:" keeps
// the tree in memory.
func Open(path string, reg *serializer.Registry) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("sqlitestore.Open: create parents: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore.Open: %w", err)
	}
	// One connection: the open transaction and the in-memory mode
	// both depend on it.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, serializers: reg}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore.Open createSchema: %w", err)
	}
	if err := s.begin(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore.Open: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tree (
			id     INTEGER PRIMARY KEY,
			parent INTEGER NULL,
			key    TEXT NOT NULL,
			flag   INTEGER NOT NULL,
			value  BLOB NULL,
			FOREIGN KEY (parent) REFERENCES tree(id) ON DELETE CASCADE
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS parent_key ON tree(parent, key)`,
		`CREATE INDEX IF NOT EXISTS parents ON tree(parent)`,
		`CREATE INDEX IF NOT EXISTS flags ON tree(flag)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("%w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// begin opens the next transaction. Callers hold s.mu or have
// exclusive access during Open.
func (s *Store) begin() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	s.tx = tx
	return nil
}

// Root returns the path-aware view over the root mapping (rows with
// parent IS NULL).
func (s *Store) Root() *storage.Node {
	m := &mapping{store: s}
	return storage.NewNode(m, m)
}

// Flush commits the current transaction and opens the next one.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: store is closed", storage.ErrStorage)
	}
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore.Flush: %w", err)
	}
	return s.begin()
}

// Close commits pending writes and closes the connection. Safe to
// call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.tx.Commit(); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("sqlitestore.Close: %w", err)
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Locked SQL helpers
// ---------------------------------------------------------------------------

func (s *Store) exec(query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: store is closed", storage.ErrStorage)
	}
	return s.tx.Exec(query, args...)
}

// queryRow runs a single-row query and scans into dest. Returns false
// with no error when the row does not exist.
func (s *Store) queryRow(dest []any, query string, args ...any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, fmt.Errorf("%w: store is closed", storage.ErrStorage)
	}
	err := s.tx.QueryRow(query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) queryStrings(query string, args ...any) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: store is closed", storage.ErrStorage)
	}
	rows, err := s.tx.Query(query, args...)
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

// ---------------------------------------------------------------------------
// Bare mapping
// ---------------------------------------------------------------------------

// mapping is a non-owning view over one node's children. An invalid
// id addresses the root level, where parent comparisons must use
// IS NULL instead of equality.
type mapping struct {
	store *Store
	id    sql.NullInt64
}

// lookup fetches the row at (parent, key). typeof(value) keeps the
// SQLite storage class visible so TEXT and BLOB stay distinct after
// scanning into any.
func (m *mapping) lookup(key string) (rowID, flag int64, value any, storedType string, found bool, err error) {
	dest := []any{&rowID, &flag, &value, &storedType}
	if m.id.Valid {
		found, err = m.store.queryRow(dest,
			`SELECT id, flag, value, typeof(value) FROM tree WHERE parent = ? AND key = ?`,
			m.id.Int64, key)
	} else {
		found, err = m.store.queryRow(dest,
			`SELECT id, flag, value, typeof(value) FROM tree WHERE parent IS NULL AND key = ?`,
			key)
	}
	return rowID, flag, value, storedType, found, err
}

func (m *mapping) Get(key string) (any, error) {
	rowID, flag, value, storedType, found, err := m.lookup(key)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: get %q: %w", key, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", storage.ErrKey, key)
	}

	switch flag {
	case flagNative:
		return decodeNative(value, storedType)
	case flagBool:
		i, ok := value.(int64)
		if !ok {
			return nil, fmt.Errorf("%w: boolean row %q holds %T", storage.ErrStorage, key, value)
		}
		return i != 0, nil
	case flagMapping:
		return &mapping{store: m.store, id: sql.NullInt64{Int64: rowID, Valid: true}}, nil
	case flagPacked:
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: packed row %q holds %T", storage.ErrStorage, key, value)
		}
		return m.store.serializers.Unpack(b)
	default:
		return nil, fmt.Errorf("%w: unsupported flag %d", storage.ErrStorage, flag)
	}
}

func (m *mapping) Set(key string, value any) error {
	newFlag, stored, err := m.encode(value)
	if err != nil {
		return err
	}

	rowID, flag, _, _, found, err := m.lookup(key)
	if err != nil {
		return fmt.Errorf("sqlitestore: set %q: %w", key, err)
	}
	if found && flag == flagMapping {
		// Cascading delete removes the whole previous subtree.
		if _, err := m.store.exec(`DELETE FROM tree WHERE id = ?`, rowID); err != nil {
			return fmt.Errorf("sqlitestore: set %q: drop subtree: %w", key, err)
		}
		found = false
	}

	var res sql.Result
	if found {
		res, err = m.store.exec(`UPDATE tree SET flag = ?, value = ? WHERE id = ?`,
			newFlag, stored, rowID)
	} else {
		res, err = m.store.exec(`INSERT INTO tree(parent, key, flag, value) VALUES(?, ?, ?, ?)`,
			m.parentArg(), key, newFlag, stored)
	}
	if err != nil {
		return fmt.Errorf("sqlitestore: set %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitestore: set %q: %w", key, err)
	}
	if n != 1 {
		return fmt.Errorf("%w: set %q affected %d rows", storage.ErrStorage, key, n)
	}
	return nil
}

// encode chooses the row flag and stored value for an already-coerced
// value.
func (m *mapping) encode(value any) (flag int64, stored any, err error) {
	switch v := value.(type) {
	case map[string]any:
		return flagMapping, nil, nil
	case bool:
		if v {
			return flagBool, int64(1), nil
		}
		return flagBool, int64(0), nil
	case nil, int64, float64, string, []byte:
		return flagNative, v, nil
	default:
		// Sequences pack through the registry's built-in tuple entry;
		// anything else needs an application-registered codec.
		if m.store.serializers.Registered(value) {
			b, err := m.store.serializers.Pack(value)
			if err != nil {
				return 0, nil, err
			}
			return flagPacked, b, nil
		}
		return 0, nil, fmt.Errorf("%w: %T", storage.ErrType, value)
	}
}

func (m *mapping) parentArg() any {
	if m.id.Valid {
		return m.id.Int64
	}
	return nil
}

func (m *mapping) Delete(key string) error {
	var res sql.Result
	var err error
	if m.id.Valid {
		res, err = m.store.exec(`DELETE FROM tree WHERE parent = ? AND key = ?`, m.id.Int64, key)
	} else {
		res, err = m.store.exec(`DELETE FROM tree WHERE parent IS NULL AND key = ?`, key)
	}
	if err != nil {
		return fmt.Errorf("sqlitestore: delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitestore: delete %q: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", storage.ErrKey, key)
	}
	return nil
}

func (m *mapping) Contains(key string) (bool, error) {
	var id int64
	if m.id.Valid {
		return m.store.queryRow([]any{&id},
			`SELECT id FROM tree WHERE parent = ? AND key = ?`, m.id.Int64, key)
	}
	return m.store.queryRow([]any{&id},
		`SELECT id FROM tree WHERE parent IS NULL AND key = ?`, key)
}

func (m *mapping) Keys() ([]string, error) {
	if m.id.Valid {
		return m.store.queryStrings(
			`SELECT key FROM tree WHERE parent = ? ORDER BY key`, m.id.Int64)
	}
	return m.store.queryStrings(
		`SELECT key FROM tree WHERE parent IS NULL ORDER BY key`)
}

func (m *mapping) Len() (int, error) {
	var n int64
	var found bool
	var err error
	if m.id.Valid {
		found, err = m.store.queryRow([]any{&n},
			`SELECT COUNT(id) FROM tree WHERE parent = ?`, m.id.Int64)
	} else {
		found, err = m.store.queryRow([]any{&n},
			`SELECT COUNT(id) FROM tree WHERE parent IS NULL`)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: len: %w", err)
	}
	if !found {
		return 0, nil
	}
	return int(n), nil
}

func (m *mapping) Flush() error {
	return m.store.Flush()
}

// decodeNative maps a scanned value back to its canonical type using
// the SQLite storage class.
func decodeNative(value any, storedType string) (any, error) {
	switch storedType {
	case "null":
		return nil, nil
	case "integer":
		i, ok := value.(int64)
		if !ok {
			return nil, fmt.Errorf("%w: integer row holds %T", storage.ErrStorage, value)
		}
		return i, nil
	case "real":
		f, ok := value.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: real row holds %T", storage.ErrStorage, value)
		}
		return f, nil
	case "text":
		switch v := value.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
		return nil, fmt.Errorf("%w: text row holds %T", storage.ErrStorage, value)
	case "blob":
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: blob row holds %T", storage.ErrStorage, value)
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unexpected storage class %q", storage.ErrStorage, storedType)
	}
}
