package jsonstore_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/treevault/internal/jsondoc"
	"github.com/go-ports/treevault/internal/jsonstore"
	"github.com/go-ports/treevault/internal/serializer"
	"github.com/go-ports/treevault/internal/storage"
	"github.com/go-ports/treevault/internal/storagetest"
)

func newRegistry(c *qt.C) *serializer.Registry {
	reg := serializer.NewRegistry()
	c.Assert(storagetest.RegisterColor(reg), qt.IsNil)
	return reg
}

func openTemp(c *qt.C) (*jsonstore.Store, string) {
	path := filepath.Join(c.TB.TempDir(), "store.json")
	s, err := jsonstore.Open(path, newRegistry(c))
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

	c.Run("values survive a reopen", func(c *qt.C) {
		dir := c.TB.TempDir()
		path := filepath.Join(dir, "sub", "store.json")

		s, err := jsonstore.Open(path, newRegistry(c))
		c.Assert(err, qt.IsNil)
		root := s.Root()
		c.Assert(root.Set("num", 7), qt.IsNil)
		c.Assert(root.Set("whole", 2000.0), qt.IsNil)
		c.Assert(root.Set("raw", []byte{0x01, 0xFE}), qt.IsNil)
		c.Assert(root.Set("tree", map[string]any{"leaf": true}), qt.IsNil)
		c.Assert(s.Close(), qt.IsNil)

		s2, err := jsonstore.Open(path, newRegistry(c))
		c.Assert(err, qt.IsNil)
		defer s2.Close()
		root = s2.Root()
		c.Assert(root.GetDefault("num", nil), qt.Equals, int64(7))
		// Whole-valued floats must not collapse into integers.
		c.Assert(root.GetDefault("whole", nil), qt.Equals, 2000.0)
		c.Assert(root.GetDefault("raw", nil), qt.DeepEquals, []byte{0x01, 0xFE})
		c.Assert(root.GetDefault("tree/leaf", nil), qt.Equals, true)
	})

	c.Run("custom types survive a reopen", func(c *qt.C) {
		path := filepath.Join(c.TB.TempDir(), "store.json")

		s, err := jsonstore.Open(path, newRegistry(c))
		c.Assert(err, qt.IsNil)
		want := storagetest.Color{R: 10, G: 20, B: 30}
		c.Assert(s.Root().Set("color", want), qt.IsNil)
		c.Assert(s.Close(), qt.IsNil)

		s2, err := jsonstore.Open(path, newRegistry(c))
		c.Assert(err, qt.IsNil)
		defer s2.Close()
		c.Assert(s2.Root().GetDefault("color", nil), qt.Equals, want)
	})

	c.Run("bytes and objects are written as sentinel objects", func(c *qt.C) {
		path := filepath.Join(c.TB.TempDir(), "store.json")

		s, err := jsonstore.Open(path, newRegistry(c))
		c.Assert(err, qt.IsNil)
		root := s.Root()
		c.Assert(root.Set("raw", []byte("hi")), qt.IsNil)
		c.Assert(root.Set("color", storagetest.Color{R: 1, G: 2, B: 3}), qt.IsNil)
		c.Assert(s.Close(), qt.IsNil)

		data, err := os.ReadFile(path)
		c.Assert(err, qt.IsNil)
		var doc map[string]map[string]any
		c.Assert(json.Unmarshal(data, &doc), qt.IsNil)
		c.Assert(doc["raw"][jsondoc.BytesSentinel], qt.Equals, "hi")
		_, ok := doc["color"][jsondoc.ObjectSentinel]
		c.Assert(ok, qt.IsTrue)
	})

	c.Run("unknown custom types on disk fail to open", func(c *qt.C) {
		path := filepath.Join(c.TB.TempDir(), "store.json")

		s, err := jsonstore.Open(path, newRegistry(c))
		c.Assert(err, qt.IsNil)
		c.Assert(s.Root().Set("color", storagetest.Color{R: 1, G: 2, B: 3}), qt.IsNil)
		c.Assert(s.Close(), qt.IsNil)

		_, err = jsonstore.Open(path, serializer.NewRegistry())
		c.Assert(err, qt.ErrorIs, serializer.ErrClassNotFound)
	})
}

func TestStore_Ephemeral(t *testing.T) {
	c := qt.New(t)

	s, err := jsonstore.Open("", newRegistry(c))
	c.Assert(err, qt.IsNil)
	root := s.Root()
	c.Assert(root.Set("k", "v"), qt.IsNil)
	c.Assert(root.GetDefault("k", nil), qt.Equals, "v")
	c.Assert(s.Flush(), qt.IsNil)
	c.Assert(s.Close(), qt.IsNil)
	c.Assert(s.Close(), qt.IsNil)
}

func TestStore_UnsupportedValue(t *testing.T) {
	c := qt.New(t)

	s, _ := openTemp(c)
	err := s.Root().Set("x", struct{ A int }{1})
	c.Assert(err, qt.ErrorIs, storage.ErrType)
}
