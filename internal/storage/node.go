package storage

import (
	"fmt"
	"sort"
	"strings"
)

// Node is the path-aware view over a bare backend mapping. It
// implements the resolution algorithm exactly once for all backends:
// reads fully resolve the path hop by hop, mutations resolve to the
// parent mapping and delegate the last segment to the backend.
//
// A Node is a cheap, non-owning reference; any number of Nodes may
// address the same storage position.
type Node struct {
	bare Bare
	root Bare
}

// NewNode wraps a bare mapping. root is the backend's true root
// mapping, used to resolve absolute paths from nested views.
func NewNode(bare, root Bare) *Node {
	return &Node{bare: bare, root: root}
}

func (n *Node) child(b Bare) *Node {
	return &Node{bare: b, root: n.root}
}

// enter handles the absolute-path marker at public entry points: a
// leading separator discards the current nesting context and resolves
// against the true root.
func (n *Node) enter(path string) (*Node, string, error) {
	if !IsAbsolute(path) {
		return n, path, nil
	}
	rest := strings.TrimPrefix(path, PathSep)
	if rest == "" || IsAbsolute(rest) {
		return nil, "", fmt.Errorf("%w: invalid key or path %q", ErrKey, path)
	}
	return &Node{bare: n.root, root: n.root}, rest, nil
}

// Get resolves path and returns the value stored there. A path
// addressing a mapping returns a *Node view of it. Intermediate
// segments addressing scalars fail with ErrMappingExpected, never a
// silent nil.
func (n *Node) Get(path string) (any, error) {
	target, p, err := n.enter(path)
	if err != nil {
		return nil, err
	}
	return target.get(p)
}

func (n *Node) get(path string) (any, error) {
	first, rest, err := SplitFirst(path)
	if err != nil {
		return nil, err
	}
	v, err := n.bare.Get(first)
	if err != nil {
		return nil, err
	}
	b, isMapping := v.(Bare)
	if rest == "" {
		if isMapping {
			return n.child(b), nil
		}
		return v, nil
	}
	if !isMapping {
		return nil, fmt.Errorf("%w: %q holds a value, not a mapping, in path %q",
			ErrMappingExpected, first, path)
	}
	return n.child(b).get(rest)
}

// GetDefault returns the value at path, or def when the path does not
// resolve.
func (n *Node) GetDefault(path string, def any) any {
	v, err := n.Get(path)
	if err != nil {
		return def
	}
	return v
}

// parentOf resolves path down to its last segment's parent mapping.
// All intermediate mappings must already exist; nothing is
// auto-created on the way.
func (n *Node) parentOf(path string) (*Node, string, error) {
	begin, last, err := SplitLast(path)
	if err != nil {
		return nil, "", err
	}
	if begin == "" {
		return n, last, nil
	}
	v, err := n.get(begin)
	if err != nil {
		return nil, "", err
	}
	parent, ok := v.(*Node)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q holds a value, not a mapping, in path %q",
			ErrMappingExpected, begin, path)
	}
	return parent, last, nil
}

// Set coerces value and stores it at path, flushing afterwards.
//
// A mapping value replaces the entire previous subtree at the target
// key: the backend materializes a fresh empty mapping node, then
// every pair of the input is written into it recursively, one
// sub-assignment at a time. Each leaf assignment flushes on its own,
// so a composite write is best-effort, not atomic.
func (n *Node) Set(path string, value any) error {
	target, p, err := n.enter(path)
	if err != nil {
		return err
	}
	return target.set(p, value)
}

func (n *Node) set(path string, value any) error {
	value, err := Coerce(value)
	if err != nil {
		return err
	}
	parent, last, err := n.parentOf(path)
	if err != nil {
		return err
	}

	m, isMapping := value.(map[string]any)
	if !isMapping {
		if err := parent.bare.Set(last, value); err != nil {
			return err
		}
		return parent.bare.Flush()
	}

	// Let the backend create the mapping node, then deep-copy the
	// input into it pair by pair.
	if err := parent.bare.Set(last, EmptyMapping); err != nil {
		return err
	}
	v, err := parent.bare.Get(last)
	if err != nil {
		return err
	}
	b, ok := v.(Bare)
	if !ok {
		return fmt.Errorf("%w: backend did not materialize a mapping at %q", ErrStorage, last)
	}
	node := n.child(b)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := node.set(k, m[k]); err != nil {
			return err
		}
	}
	return parent.bare.Flush()
}

// Delete removes the value at path and flushes. A missing key fails
// with ErrKey.
func (n *Node) Delete(path string) error {
	target, p, err := n.enter(path)
	if err != nil {
		return err
	}
	parent, last, err := target.parentOf(p)
	if err != nil {
		return err
	}
	if err := parent.bare.Delete(last); err != nil {
		return err
	}
	return parent.bare.Flush()
}

// Contains reports whether path resolves to an existing key. This is
// the one place storage errors are deliberately swallowed: a path
// crossing a scalar, or any other resolution failure, reports false
// instead of propagating.
func (n *Node) Contains(path string) bool {
	target, p, err := n.enter(path)
	if err != nil {
		return false
	}
	parent, last, err := target.parentOf(p)
	if err != nil {
		return false
	}
	ok, err := parent.bare.Contains(last)
	if err != nil {
		return false
	}
	return ok
}

// Keys returns the keys of this mapping, sorted.
func (n *Node) Keys() ([]string, error) {
	return n.bare.Keys()
}

// Len returns the number of direct children of this mapping.
func (n *Node) Len() (int, error) {
	return n.bare.Len()
}

// Flush persists buffered state of the owning backend.
func (n *Node) Flush() error {
	return n.bare.Flush()
}

func (n *Node) String() string {
	return fmt.Sprintf("Node(%T)", n.bare)
}
