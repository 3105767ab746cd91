// Package jsondoc encodes the storage document tree as JSON.
//
// Two reserved single-key sentinel shapes carry values plain JSON
// cannot: {"\BYTES": ...} for raw byte payloads and {"\OBJECT": ...}
// for serializer-packed objects. Payload text is latin-1: every byte
// maps to the codepoint of the same value, a bijection over all 256
// bytes that keeps binary data lossless inside a UTF-8 document.
// Numbers decode through json.Number so integers and floats stay
// distinct across a round trip.
package jsondoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-ports/treevault/internal/storage"
)

// Reserved single-key sentinel field names.
const (
	BytesSentinel  = `\BYTES`
	ObjectSentinel = `\OBJECT`
)

// Packer packs and unpacks registered serializable values.
// *serializer.Registry satisfies it.
type Packer interface {
	Registered(value any) bool
	Pack(value any) ([]byte, error)
	Unpack(packed []byte) (any, error)
}

// Marshal encodes a whole document tree as indented JSON.
func Marshal(doc map[string]any, p Packer) ([]byte, error) {
	enc, err := encodeValue(doc, p)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(enc, "", "    ")
}

// Unmarshal decodes a document produced by Marshal. Objects matching
// a sentinel shape come back as bytes or as the registered type; all
// other objects are ordinary mappings.
func Unmarshal(data []byte, p Packer) (map[string]any, error) {
	v, err := UnmarshalValue(data, p)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("jsondoc.Unmarshal: document root is %T, not an object", v)
	}
	return doc, nil
}

// MarshalValue encodes a single already-coerced value.
func MarshalValue(value any, p Packer) ([]byte, error) {
	enc, err := encodeValue(value, p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(enc)
}

// UnmarshalValue decodes a single value produced by MarshalValue.
func UnmarshalValue(data []byte, p Packer) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("jsondoc.UnmarshalValue: %w", err)
	}
	return decodeValue(raw, p)
}

func encodeValue(value any, p Packer) (any, error) {
	switch v := value.(type) {
	case nil, bool, string, int64:
		return v, nil
	case float64:
		return encodeFloat(v), nil
	case []byte:
		return map[string]any{BytesSentinel: latin1String(v)}, nil
	case storage.Sequence:
		out := make([]any, len(v))
		for i, elem := range v {
			enc, err := encodeValue(elem, p)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			enc, err := encodeValue(elem, p)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	}
	if p != nil && p.Registered(value) {
		packed, err := p.Pack(value)
		if err != nil {
			return nil, err
		}
		return map[string]any{ObjectSentinel: latin1String(packed)}, nil
	}
	return nil, fmt.Errorf("%w: cannot encode %T as JSON document value", storage.ErrType, value)
}

func decodeValue(raw any, p Packer) (any, error) {
	switch v := raw.(type) {
	case json.Number:
		return decodeNumber(v)
	case []any:
		out := make(storage.Sequence, len(v))
		for i, elem := range v {
			dec, err := decodeValue(elem, p)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	case map[string]any:
		if len(v) == 1 {
			if s, ok := v[BytesSentinel].(string); ok {
				return latin1Bytes(s)
			}
			if s, ok := v[ObjectSentinel].(string); ok {
				packed, err := latin1Bytes(s)
				if err != nil {
					return nil, err
				}
				if p == nil {
					return nil, fmt.Errorf("jsondoc: packed object found but no packer available")
				}
				return p.Unpack(packed)
			}
		}
		out := make(map[string]any, len(v))
		for k, elem := range v {
			dec, err := decodeValue(elem, p)
			if err != nil {
				return nil, err
			}
			out[k] = dec
		}
		return out, nil
	default:
		// bool, string, nil
		return v, nil
	}
}

func decodeNumber(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, err := n.Int64()
		if err == nil {
			return i, nil
		}
		// Falls through for integers beyond int64 range.
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("jsondoc: bad number %q: %w", s, err)
	}
	return f, nil
}

// encodeFloat renders a float with an explicit fraction or exponent,
// so whole-valued floats do not decode back as integers.
func encodeFloat(f float64) json.Number {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return json.Number(s)
}

// latin1String maps each byte to the codepoint of the same value.
func latin1String(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// latin1Bytes inverts latin1String. Codepoints above U+00FF cannot
// come from it and fail.
func latin1Bytes(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, fmt.Errorf("jsondoc: codepoint %q outside latin-1 byte payload", r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}
