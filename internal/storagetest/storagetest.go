// Package storagetest provides the conformance suite every storage
// backend must pass. Backend test packages call Run with a factory
// returning a fresh backend; persistence-specific behavior (reopen
// round trips) stays in the backend's own tests.
package storagetest

import (
	"fmt"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/treevault/internal/serializer"
	"github.com/go-ports/treevault/internal/storage"
)

// Opener returns a fresh, empty backend for one subtest. Cleanup is
// the opener's job (c.Cleanup closing the backend).
type Opener func(c *qt.C) storage.Backend

// Color is a small serializable type used for custom-type round
// trips.
type Color struct {
	R, G, B uint8
}

// ColorID is the identifier Color registers under.
const ColorID = "storagetest.Color"

// RegisterColor registers the Color codec on reg.
func RegisterColor(reg *serializer.Registry) error {
	return reg.Register(ColorID, Color{},
		func(value any) ([]byte, error) {
			c, ok := value.(Color)
			if !ok {
				return nil, fmt.Errorf("encode: not a Color: %T", value)
			}
			return []byte{c.R, c.G, c.B}, nil
		},
		func(data []byte) (any, error) {
			if len(data) != 3 {
				return nil, fmt.Errorf("decode: want 3 bytes, got %d", len(data))
			}
			return Color{R: data[0], G: data[1], B: data[2]}, nil
		},
	)
}

// Run exercises the backend contract: typed round trips, deletion,
// deep materialization, destructive overwrite, absolute addressing,
// sequence coercion and path error behavior.
func Run(c *qt.C, open Opener) {
	c.Run("minimal values round trip with their types", func(c *qt.C) {
		root := open(c).Root()

		c.Assert(root.Set("int", 42), qt.IsNil)
		c.Assert(root.Set("bool", true), qt.IsNil)
		c.Assert(root.Set("float", 42.42), qt.IsNil)
		c.Assert(root.Set("string", "value1"), qt.IsNil)
		c.Assert(root.Set("bytes", []byte("bytes!")), qt.IsNil)
		c.Assert(root.Set("null", nil), qt.IsNil)

		get := func(key string) any {
			v, err := root.Get(key)
			c.Assert(err, qt.IsNil)
			return v
		}
		// qt.Equals compares dynamic types too: true must come back
		// as a bool, never as integer 1.
		c.Assert(get("int"), qt.Equals, int64(42))
		c.Assert(get("bool"), qt.Equals, true)
		c.Assert(get("float"), qt.Equals, 42.42)
		c.Assert(get("string"), qt.Equals, "value1")
		c.Assert(get("bytes"), qt.DeepEquals, []byte("bytes!"))
		c.Assert(get("null"), qt.IsNil)

		n, err := root.Len()
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, 6)
	})

	c.Run("integer 0 and 1 stay integers", func(c *qt.C) {
		root := open(c).Root()
		c.Assert(root.Set("zero", 0), qt.IsNil)
		c.Assert(root.Set("one", 1), qt.IsNil)
		c.Assert(root.GetDefault("zero", nil), qt.Equals, int64(0))
		c.Assert(root.GetDefault("one", nil), qt.Equals, int64(1))
	})

	c.Run("delete restores length and containment", func(c *qt.C) {
		root := open(c).Root()
		c.Assert(root.Set("keep", "a"), qt.IsNil)

		before, err := root.Len()
		c.Assert(err, qt.IsNil)

		c.Assert(root.Set("gone", "b"), qt.IsNil)
		c.Assert(root.Contains("gone"), qt.IsTrue)
		c.Assert(root.Delete("gone"), qt.IsNil)
		c.Assert(root.Contains("gone"), qt.IsFalse)

		after, err := root.Len()
		c.Assert(err, qt.IsNil)
		c.Assert(after, qt.Equals, before)

		c.Assert(root.Delete("gone"), qt.ErrorIs, storage.ErrKey)
	})

	c.Run("GetDefault falls back for missing keys", func(c *qt.C) {
		root := open(c).Root()
		c.Assert(root.Set("key2", "value2"), qt.IsNil)
		c.Assert(root.GetDefault("key1", "default"), qt.Equals, "default")
		c.Assert(root.GetDefault("key2", "default"), qt.Equals, "value2")
	})

	c.Run("mapping write materializes deep paths", func(c *qt.C) {
		root := open(c).Root()
		err := root.Set("a", map[string]any{"b": map[string]any{"c": 5}})
		c.Assert(err, qt.IsNil)

		v, err := root.Get("a/b/c")
		c.Assert(err, qt.IsNil)
		c.Assert(v, qt.Equals, int64(5))

		sub, err := root.Get("a/b")
		c.Assert(err, qt.IsNil)
		node, ok := sub.(*storage.Node)
		c.Assert(ok, qt.IsTrue)
		c.Assert(node.Contains("c"), qt.IsTrue)
		keys, err := node.Keys()
		c.Assert(err, qt.IsNil)
		c.Assert(keys, qt.DeepEquals, []string{"c"})
	})

	c.Run("assigning a scalar replaces the whole subtree", func(c *qt.C) {
		root := open(c).Root()
		c.Assert(root.Set("a", map[string]any{"b": 1}), qt.IsNil)
		c.Assert(root.Set("a", "scalar"), qt.IsNil)

		v, err := root.Get("a")
		c.Assert(err, qt.IsNil)
		c.Assert(v, qt.Equals, "scalar")
		c.Assert(root.Contains("a/b"), qt.IsFalse)
	})

	c.Run("assigning a mapping replaces a previous mapping", func(c *qt.C) {
		root := open(c).Root()
		c.Assert(root.Set("replacing", "string"), qt.IsNil)
		c.Assert(root.Set("replacing", map[string]any{"sub1": 123, "sub2": 456}), qt.IsNil)

		c.Assert(root.GetDefault("replacing/sub1", nil), qt.Equals, int64(123))
		c.Assert(root.GetDefault("replacing/sub2", nil), qt.Equals, int64(456))

		c.Assert(root.Set("replacing", "replaced by string"), qt.IsNil)
		c.Assert(root.GetDefault("replacing", nil), qt.Equals, "replaced by string")
		c.Assert(root.Contains("replacing/sub1"), qt.IsFalse)
	})

	c.Run("absolute paths resolve from the true root", func(c *qt.C) {
		root := open(c).Root()
		c.Assert(root.Set("rootkey", "rootvalue"), qt.IsNil)
		c.Assert(root.Set("l1", map[string]any{"l2": map[string]any{}}), qt.IsNil)

		v, err := root.Get("l1/l2")
		c.Assert(err, qt.IsNil)
		nested, ok := v.(*storage.Node)
		c.Assert(ok, qt.IsTrue)

		got, err := nested.Get("/rootkey")
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, "rootvalue")
		c.Assert(nested.Contains("/rootkey"), qt.IsTrue)
	})

	c.Run("slices come back as sequences", func(c *qt.C) {
		root := open(c).Root()
		c.Assert(root.Set("x", []int{1, 2, 3}), qt.IsNil)

		v, err := root.Get("x")
		c.Assert(err, qt.IsNil)
		c.Assert(v, qt.DeepEquals, storage.Sequence{int64(1), int64(2), int64(3)})
	})

	c.Run("paths across scalars fail loudly except in Contains", func(c *qt.C) {
		root := open(c).Root()
		c.Assert(root.Set("px", 123), qt.IsNil)

		_, err := root.Get("px/y")
		c.Assert(err, qt.ErrorIs, storage.ErrMappingExpected)

		err = root.Set("px/y", 1)
		c.Assert(err, qt.ErrorIs, storage.ErrMappingExpected)

		c.Assert(root.Contains("px/y"), qt.IsFalse)
	})

	c.Run("intermediate containers are not auto-created", func(c *qt.C) {
		root := open(c).Root()
		err := root.Set("missing/key", 1)
		c.Assert(err, qt.ErrorIs, storage.ErrKey)
	})

	c.Run("malformed paths fail", func(c *qt.C) {
		root := open(c).Root()
		for _, path := range []string{"", "/", "a//b", "a/", "spa ce", "a//"} {
			_, err := root.Get(path)
			c.Assert(err, qt.ErrorIs, storage.ErrKey, qt.Commentf("path %q", path))
		}
	})

	c.Run("end to end scenario", func(c *qt.C) {
		root := open(c).Root()
		c.Assert(root.Set("paths", map[string]any{"sub1": 1, "sub2": 2}), qt.IsNil)
		c.Assert(root.GetDefault("paths/sub1", nil), qt.Equals, int64(1))
		c.Assert(root.GetDefault("paths/sub2", nil), qt.Equals, int64(2))

		v, err := root.Get("paths")
		c.Assert(err, qt.IsNil)
		paths, ok := v.(*storage.Node)
		c.Assert(ok, qt.IsTrue)

		err = paths.Set("a", map[string]any{"very": map[string]any{"deep": []byte("hello world")}})
		c.Assert(err, qt.IsNil)

		got, err := root.Get("paths/a/very/deep")
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.DeepEquals, []byte("hello world"))
	})
}
