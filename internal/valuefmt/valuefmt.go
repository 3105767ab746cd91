// Package valuefmt converts between storage values and their textual
// CLI/MCP representation.
package valuefmt

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-ports/treevault/internal/jsondoc"
	"github.com/go-ports/treevault/internal/storage"
)

// Types accepted by Parse.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeBytes  = "bytes"
	TypeNull   = "null"
	TypeJSON   = "json"
)

// Parse turns raw text into a storage value according to typ. The
// "json" type accepts a whole document fragment, including the
// reserved sentinel shapes for bytes.
func Parse(raw, typ string) (any, error) {
	switch typ {
	case TypeString, "":
		return raw, nil
	case TypeInt:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("valuefmt.Parse: %w", err)
		}
		return i, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("valuefmt.Parse: %w", err)
		}
		return f, nil
	case TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("valuefmt.Parse: %w", err)
		}
		return b, nil
	case TypeBytes:
		return []byte(raw), nil
	case TypeNull:
		return nil, nil
	case TypeJSON:
		v, err := jsondoc.UnmarshalValue([]byte(raw), nil)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("valuefmt.Parse: unknown type %q", typ)
	}
}

// Format renders a value read from storage for display. Mappings are
// exported as indented JSON; bytes print as a quoted string.
func Format(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "null", nil
	case *storage.Node:
		doc, err := storage.Export(t)
		if err != nil {
			return "", err
		}
		out, err := json.MarshalIndent(Displayable(doc), "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case []byte:
		return strconv.Quote(string(t)), nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		out, err := json.Marshal(Displayable(v))
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// Displayable rewrites an exported tree into a JSON-encodable one:
// byte values become strings, sequences become plain slices.
// Unregistered object values render as their Go string form.
func Displayable(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case storage.Sequence:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = Displayable(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[k] = Displayable(elem)
		}
		return out
	case nil, bool, string, int64, float64:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
