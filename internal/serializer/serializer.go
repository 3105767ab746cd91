// Package serializer persists application-defined value types as
// tagged opaque bytes. A registry maps a stable type identifier to an
// encode/decode pair; packed values travel as
// "<identifier>::<payload>" and decode back to the original type.
package serializer

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/go-ports/treevault/internal/jsondoc"
	"github.com/go-ports/treevault/internal/storage"
)

// Sep separates the type identifier from the payload in packed bytes.
// Unpack splits on the first occurrence.
var Sep = []byte("::")

// TupleID is the built-in identifier for packed ordered sequences.
// It is reserved; Register rejects it for application types.
const TupleID = "tuple"

var (
	// ErrSerializer is the base error of this package.
	ErrSerializer = errors.New("serializer")

	// ErrClassNotFound reports a packed value whose type identifier
	// has no registered decoder.
	ErrClassNotFound = fmt.Errorf("%w: class not found", ErrSerializer)
)

// EncodeFunc turns a registered value into its payload bytes.
type EncodeFunc func(value any) ([]byte, error)

// DecodeFunc rebuilds a value from its payload bytes.
type DecodeFunc func(data []byte) (any, error)

type entry struct {
	typ    reflect.Type
	encode EncodeFunc
	decode DecodeFunc
}

// Registry maps type identifiers to encode/decode functions. It is an
// explicit value constructed once at process start and passed into
// the storage subsystem; there is no package-level shared state.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]entry
	byType map[reflect.Type]string
}

// NewRegistry returns a registry preloaded with the built-in tuple
// codec, which backends without a native sequence representation use
// to pack ordered sequences.
func NewRegistry() *Registry {
	r := &Registry{
		byID:   make(map[string]entry),
		byType: make(map[reflect.Type]string),
	}
	r.byID[TupleID] = entry{
		typ: reflect.TypeOf(storage.Sequence(nil)),
		encode: func(value any) ([]byte, error) {
			return jsondoc.MarshalValue(value, r)
		},
		decode: func(data []byte) (any, error) {
			return jsondoc.UnmarshalValue(data, r)
		},
	}
	r.byType[reflect.TypeOf(storage.Sequence(nil))] = TupleID
	return r
}

// Register binds identifier to the encode/decode pair for prototype's
// concrete type. Re-registering the identical type under the same
// identifier is a logged no-op. Claiming an already-used identifier
// with a different type fails and leaves the registry unchanged.
func (r *Registry) Register(identifier string, prototype any, encode EncodeFunc, decode DecodeFunc) error {
	if identifier == "" || bytes.Contains([]byte(identifier), Sep) {
		return fmt.Errorf("%w: invalid identifier %q", ErrSerializer, identifier)
	}
	if encode == nil || decode == nil {
		return fmt.Errorf("%w: identifier %q needs both encode and decode", ErrSerializer, identifier)
	}
	typ := reflect.TypeOf(prototype)
	if typ == nil {
		return fmt.Errorf("%w: prototype for %q must not be nil", ErrSerializer, identifier)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[identifier]; ok {
		if existing.typ == typ {
			slog.Debug("serializer: identifier already registered", "identifier", identifier, "type", typ.String())
			return nil
		}
		return fmt.Errorf("%w: identifier %q already bound to %s, refusing %s",
			ErrSerializer, identifier, existing.typ, typ)
	}
	if prev, ok := r.byType[typ]; ok {
		return fmt.Errorf("%w: type %s already registered as %q", ErrSerializer, typ, prev)
	}
	r.byID[identifier] = entry{typ: typ, encode: encode, decode: decode}
	r.byType[typ] = identifier
	return nil
}

// Registered reports whether value's concrete type has an
// encode/decode pair.
func (r *Registry) Registered(value any) bool {
	_, ok := r.IdentifierFor(value)
	return ok
}

// IdentifierFor returns the identifier registered for value's
// concrete type.
func (r *Registry) IdentifierFor(value any) (string, bool) {
	typ := reflect.TypeOf(value)
	if typ == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byType[typ]
	return id, ok
}

// Pack encodes value as identifier + separator + payload.
func (r *Registry) Pack(value any) ([]byte, error) {
	id, ok := r.IdentifierFor(value)
	if !ok {
		return nil, fmt.Errorf("%w: no identifier registered for %T", ErrSerializer, value)
	}
	r.mu.RLock()
	e := r.byID[id]
	r.mu.RUnlock()

	payload, err := e.encode(value)
	if err != nil {
		return nil, fmt.Errorf("serializer.Pack %q: %w", id, err)
	}
	packed := make([]byte, 0, len(id)+len(Sep)+len(payload))
	packed = append(packed, id...)
	packed = append(packed, Sep...)
	packed = append(packed, payload...)
	return packed, nil
}

// Unpack splits packed on the first separator, looks the identifier
// up and decodes the payload. An unregistered identifier returns
// ErrClassNotFound.
func (r *Registry) Unpack(packed []byte) (any, error) {
	i := bytes.Index(packed, Sep)
	if i < 0 {
		return nil, fmt.Errorf("%w: packed value has no separator", ErrSerializer)
	}
	id := string(packed[:i])

	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrClassNotFound, id)
	}

	value, err := e.decode(packed[i+len(Sep):])
	if err != nil {
		return nil, fmt.Errorf("serializer.Unpack %q: %w", id, err)
	}
	return value, nil
}
