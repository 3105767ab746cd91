// Package jsonstore implements the JSON-file storage backend: one
// in-memory nested map persisted as a single document.
//
// There is no incremental persistence and no locking; every flush
// rewrites the whole file and callers needing concurrency safety must
// serialize externally.
package jsonstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-ports/treevault/internal/jsondoc"
	"github.com/go-ports/treevault/internal/storage"
)

// Kind coverage declared at backend registration.
var (
	NativeKinds = []storage.Kind{
		storage.KindInt, storage.KindBool, storage.KindFloat, storage.KindString,
		storage.KindNull, storage.KindSequence, storage.KindMapping,
	}
	ExtraKinds = []storage.Kind{storage.KindBytes, storage.KindObject}
)

// Store is the JSON backend. It owns the document and the file it is
// persisted to.
type Store struct {
	path   string // empty: ephemeral, never persisted
	doc    map[string]any
	packer jsondoc.Packer
	closed bool
}

// Open loads the document at path, starting empty when the file does
// not exist. Parent directories are created as needed. An empty path
// keeps the store ephemeral.
func Open(path string, packer jsondoc.Packer) (*Store, error) {
	s := &Store{path: path, doc: map[string]any{}, packer: packer}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("jsonstore.Open: create parents: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonstore.Open: %w", err)
	}

	doc, err := jsondoc.Unmarshal(data, packer)
	if err != nil {
		return nil, fmt.Errorf("jsonstore.Open %s: %w", path, err)
	}
	s.doc = doc
	return s, nil
}

// Root returns the path-aware view over the document root.
func (s *Store) Root() *storage.Node {
	m := &mapping{store: s, dict: s.doc}
	return storage.NewNode(m, m)
}

// Flush rewrites the whole document. Ephemeral stores flush to
// nowhere.
func (s *Store) Flush() error {
	if s.path == "" || s.closed {
		return nil
	}
	data, err := jsondoc.Marshal(s.doc, s.packer)
	if err != nil {
		return fmt.Errorf("jsonstore.Flush: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("jsonstore.Flush: %w", err)
	}
	return nil
}

// Close flushes and detaches the store. Idempotent.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	err := s.Flush()
	s.closed = true
	return err
}

// ---------------------------------------------------------------------------
// Bare mapping
// ---------------------------------------------------------------------------

// mapping is a non-owning view over one dict of the document tree.
type mapping struct {
	store *Store
	dict  map[string]any
}

func (m *mapping) Get(key string) (any, error) {
	v, ok := m.dict[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", storage.ErrKey, key)
	}
	if child, ok := v.(map[string]any); ok {
		return &mapping{store: m.store, dict: child}, nil
	}
	return v, nil
}

func (m *mapping) Set(key string, value any) error {
	switch value.(type) {
	case map[string]any:
		// Fresh node; any previous subtree is dropped with it.
		// Contents are copied pair by pair by the Node wrapper.
		m.dict[key] = map[string]any{}
		return nil
	case nil, bool, int64, float64, string, []byte, storage.Sequence:
		m.dict[key] = value
		return nil
	default:
		if m.store.packer != nil && m.store.packer.Registered(value) {
			m.dict[key] = value
			return nil
		}
		return fmt.Errorf("%w: %T", storage.ErrType, value)
	}
}

func (m *mapping) Delete(key string) error {
	if _, ok := m.dict[key]; !ok {
		return fmt.Errorf("%w: %q", storage.ErrKey, key)
	}
	delete(m.dict, key)
	return nil
}

func (m *mapping) Contains(key string) (bool, error) {
	_, ok := m.dict[key]
	return ok, nil
}

func (m *mapping) Keys() ([]string, error) {
	keys := make([]string, 0, len(m.dict))
	for k := range m.dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *mapping) Len() (int, error) {
	return len(m.dict), nil
}

func (m *mapping) Flush() error {
	return m.store.Flush()
}
