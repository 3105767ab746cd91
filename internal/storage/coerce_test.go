package storage_test

import (
	"math"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/treevault/internal/storage"
)

func TestCoerce_Numbers(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name string
		in   any
		want any
	}{
		{"int", int(7), int64(7)},
		{"int8", int8(-3), int64(-3)},
		{"int32", int32(1 << 20), int64(1 << 20)},
		{"int64 passes through", int64(9), int64(9)},
		{"uint8", uint8(255), int64(255)},
		{"uint32", uint32(4000000000), int64(4000000000)},
		{"uint64 in range", uint64(12), int64(12)},
		{"float32", float32(1.5), float64(1.5)},
		{"float64 passes through", 2.25, 2.25},
		{"big.Int in range", big.NewInt(123), int64(123)},
		{"big.Float is lossy", big.NewFloat(0.5), 0.5},
		{"big.Rat is lossy", big.NewRat(1, 4), 0.25},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			got, err := storage.Coerce(tc.in)
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.Equals, tc.want)
		})
	}

	c.Run("uint64 overflow fails", func(c *qt.C) {
		_, err := storage.Coerce(uint64(math.MaxUint64))
		c.Assert(err, qt.ErrorIs, storage.ErrType)
	})
}

func TestCoerce_Containers(t *testing.T) {
	c := qt.New(t)

	c.Run("int slice becomes a sequence", func(c *qt.C) {
		got, err := storage.Coerce([]int{1, 2, 3})
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.DeepEquals, storage.Sequence{int64(1), int64(2), int64(3)})
	})

	c.Run("string slice becomes a sequence", func(c *qt.C) {
		got, err := storage.Coerce([]string{"a", "b"})
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.DeepEquals, storage.Sequence{"a", "b"})
	})

	c.Run("nested slices coerce recursively", func(c *qt.C) {
		got, err := storage.Coerce([]any{[]int{1}, "x"})
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.DeepEquals, storage.Sequence{storage.Sequence{int64(1)}, "x"})
	})

	c.Run("byte slice stays bytes but is copied", func(c *qt.C) {
		in := []byte("abc")
		got, err := storage.Coerce(in)
		c.Assert(err, qt.IsNil)
		b, ok := got.([]byte)
		c.Assert(ok, qt.IsTrue)
		c.Assert(b, qt.DeepEquals, []byte("abc"))
		in[0] = 'X'
		c.Assert(b, qt.DeepEquals, []byte("abc"))
	})

	c.Run("typed map becomes map[string]any with raw values", func(c *qt.C) {
		got, err := storage.Coerce(map[string]int{"a": 1})
		c.Assert(err, qt.IsNil)
		m, ok := got.(map[string]any)
		c.Assert(ok, qt.IsTrue)
		c.Assert(m["a"], qt.Equals, int(1))
	})

	c.Run("non-string map keys fail", func(c *qt.C) {
		_, err := storage.Coerce(map[int]string{1: "a"})
		c.Assert(err, qt.ErrorIs, storage.ErrType)
	})

	c.Run("mapping inside a sequence fails", func(c *qt.C) {
		_, err := storage.Coerce([]any{map[string]any{"a": 1}})
		c.Assert(err, qt.ErrorIs, storage.ErrType)
	})
}

func TestKindOf(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name string
		in   any
		want storage.Kind
	}{
		{"nil", nil, storage.KindNull},
		{"bool", true, storage.KindBool},
		{"int64", int64(1), storage.KindInt},
		{"float64", 1.5, storage.KindFloat},
		{"string", "s", storage.KindString},
		{"bytes", []byte("b"), storage.KindBytes},
		{"mapping", map[string]any{}, storage.KindMapping},
		{"sequence", storage.Sequence{}, storage.KindSequence},
		{"object", struct{ X int }{1}, storage.KindObject},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			c.Assert(storage.KindOf(tc.in), qt.Equals, tc.want)
		})
	}
}
