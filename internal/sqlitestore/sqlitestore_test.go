package sqlitestore_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	_ "github.com/mattn/go-sqlite3"

	"github.com/go-ports/treevault/internal/serializer"
	"github.com/go-ports/treevault/internal/sqlitestore"
	"github.com/go-ports/treevault/internal/storage"
	"github.com/go-ports/treevault/internal/storagetest"
)

func newRegistry(c *qt.C) *serializer.Registry {
	reg := serializer.NewRegistry()
	c.Assert(storagetest.RegisterColor(reg), qt.IsNil)
	return reg
}

func openTemp(c *qt.C) (*sqlitestore.Store, string) {
	path := filepath.Join(c.TB.TempDir(), "store.db")
	s, err := sqlitestore.Open(path, newRegistry(c))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { c.Assert(s.Close(), qt.IsNil) })
	return s, path
}

func TestStore_Conformance(t *testing.T) {
	c := qt.New(t)
	storagetest.Run(c, func(c *qt.C) storage.Backend {
		s, _ := openTemp(c)
		return s
	})
}

func TestStore_Persistence(t *testing.T) {
	c := qt.New(t)

	c.Run("values survive a reopen with their types", func(c *qt.C) {
		path := filepath.Join(c.TB.TempDir(), "sub", "store.db")

		s, err := sqlitestore.Open(path, newRegistry(c))
		c.Assert(err, qt.IsNil)
		root := s.Root()
		c.Assert(root.Set("int", 1), qt.IsNil)
		c.Assert(root.Set("flag", true), qt.IsNil)
		c.Assert(root.Set("off", false), qt.IsNil)
		c.Assert(root.Set("text", "value"), qt.IsNil)
		c.Assert(root.Set("raw", []byte("value")), qt.IsNil)
		c.Assert(root.Set("seq", []any{int64(1), "two"}), qt.IsNil)
		c.Assert(root.Set("tree", map[string]any{"leaf": 5}), qt.IsNil)
		c.Assert(s.Close(), qt.IsNil)

		s2, err := sqlitestore.Open(path, newRegistry(c))
		c.Assert(err, qt.IsNil)
		defer s2.Close()
		root = s2.Root()

		// Booleans stored as 0/1 must not come back as integers, and
		// TEXT and BLOB rows holding the same bytes must stay distinct.
		c.Assert(root.GetDefault("int", nil), qt.Equals, int64(1))
		c.Assert(root.GetDefault("flag", nil), qt.Equals, true)
		c.Assert(root.GetDefault("off", nil), qt.Equals, false)
		c.Assert(root.GetDefault("text", nil), qt.Equals, "value")
		c.Assert(root.GetDefault("raw", nil), qt.DeepEquals, []byte("value"))
		c.Assert(root.GetDefault("seq", nil), qt.DeepEquals, storage.Sequence{int64(1), "two"})
		c.Assert(root.GetDefault("tree/leaf", nil), qt.Equals, int64(5))
	})

	c.Run("custom types survive a reopen", func(c *qt.C) {
		path := filepath.Join(c.TB.TempDir(), "store.db")

		s, err := sqlitestore.Open(path, newRegistry(c))
		c.Assert(err, qt.IsNil)
		want := storagetest.Color{R: 200, G: 100, B: 0}
		c.Assert(s.Root().Set("color", want), qt.IsNil)
		c.Assert(s.Close(), qt.IsNil)

		s2, err := sqlitestore.Open(path, newRegistry(c))
		c.Assert(err, qt.IsNil)
		defer s2.Close()
		c.Assert(s2.Root().GetDefault("color", nil), qt.Equals, want)
	})

	c.Run("unflushed writes are committed on close", func(c *qt.C) {
		path := filepath.Join(c.TB.TempDir(), "store.db")

		s, err := sqlitestore.Open(path, newRegistry(c))
		c.Assert(err, qt.IsNil)
		c.Assert(s.Root().Set("k", "v"), qt.IsNil)
		c.Assert(s.Close(), qt.IsNil)

		s2, err := sqlitestore.Open(path, newRegistry(c))
		c.Assert(err, qt.IsNil)
		defer s2.Close()
		c.Assert(s2.Root().GetDefault("k", nil), qt.Equals, "v")
	})
}

func TestStore_DestructiveOverwriteLeavesNoOrphans(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TB.TempDir(), "store.db")

	s, err := sqlitestore.Open(path, newRegistry(c))
	c.Assert(err, qt.IsNil)
	root := s.Root()
	err = root.Set("a", map[string]any{
		"b": map[string]any{"c": 1, "d": 2},
		"e": 3,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(root.Set("a", "scalar"), qt.IsNil)
	c.Assert(s.Close(), qt.IsNil)

	// Inspect the raw table: replacing the subtree root must cascade
	// away every descendant row.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	c.Assert(err, qt.IsNil)
	defer db.Close()
	var n int
	c.Assert(db.QueryRow(`SELECT COUNT(id) FROM tree`).Scan(&n), qt.IsNil)
	c.Assert(n, qt.Equals, 1)
}

func TestStore_InMemory(t *testing.T) {
	c := qt.New(t)

	s, err := sqlitestore.Open(":memory:", newRegistry(c))
	c.Assert(err, qt.IsNil)
	root := s.Root()
	c.Assert(root.Set("k", map[string]any{"nested": true}), qt.IsNil)
	c.Assert(root.GetDefault("k/nested", nil), qt.Equals, true)
	c.Assert(s.Flush(), qt.IsNil)
	c.Assert(root.Contains("k/nested"), qt.IsTrue)
	c.Assert(s.Close(), qt.IsNil)
	c.Assert(s.Close(), qt.IsNil)
}

func TestStore_UnsupportedValue(t *testing.T) {
	c := qt.New(t)

	s, _ := openTemp(c)
	err := s.Root().Set("x", struct{ A int }{1})
	c.Assert(err, qt.ErrorIs, storage.ErrType)
}
