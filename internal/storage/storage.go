// Package storage implements the hierarchical, path-addressable
// key-value core: path resolution, type coercion, the backend
// contract, and the shared path-aware node wrapper.
//
// Backends only ever see single-segment keys. Everything about paths
// ("a/b/c", absolute "/a") lives in Node, which wraps the Bare
// interface every backend implements.
package storage

// Kind identifies a canonical storable type class. Backends declare
// the kinds they cover natively and the ones they cover through extra
// encoding logic.
type Kind uint8

// Canonical type classes.
const (
	KindInt Kind = iota
	KindBool
	KindFloat
	KindString
	KindBytes
	KindNull
	KindMapping
	KindSequence
	KindObject
)

var kindNames = map[Kind]string{
	KindInt:      "int",
	KindBool:     "bool",
	KindFloat:    "float",
	KindString:   "string",
	KindBytes:    "bytes",
	KindNull:     "null",
	KindMapping:  "mapping",
	KindSequence: "sequence",
	KindObject:   "object",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MinimalKinds is the coverage every backend must provide, natively or
// through extra encoding. Registration fails for backends missing any
// of these.
var MinimalKinds = []Kind{
	KindInt, KindBool, KindFloat, KindString, KindBytes, KindNull, KindMapping,
}

// Sequence is the canonical ordered-sequence value. Slice inputs are
// copied into a Sequence at the coercion boundary; reads return a
// Sequence, never the caller's original slice type.
type Sequence []any

// EmptyMapping is the sentinel a Node passes to a bare Set to make
// the backend materialize a new, empty child mapping node. Backends
// ignore its contents.
var EmptyMapping = map[string]any{}

// Bare is the single-segment contract a backend's node implements.
// Keys are single path segments; Node performs all path
// decomposition before delegating here.
type Bare interface {
	// Get returns the scalar stored under key, or a child Bare when
	// the key addresses a mapping node.
	Get(key string) (any, error)

	// Set stores an already-coerced value under key. A map[string]any
	// value materializes a fresh empty child mapping; any previous
	// subtree under key is removed first. Mapping contents are copied
	// pair by pair through the Node wrapper, never here.
	Set(key string, value any) error

	// Delete removes key. A missing key returns ErrKey.
	Delete(key string) error

	Contains(key string) (bool, error)
	Keys() ([]string, error)
	Len() (int, error)

	// Flush persists buffered state.
	Flush() error
}

// Backend owns the durable resource (file handle, database
// connection) and the single logical root node. Node views are cheap
// non-owning references and never outlive their Backend.
type Backend interface {
	// Root returns the path-aware view over the root mapping.
	Root() *Node

	Flush() error

	// Close flushes pending state and releases the owned resource.
	// Safe to call more than once.
	Close() error
}
