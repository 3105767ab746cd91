package storage

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
)

// Coerce maps a caller-supplied value onto its canonical storable
// form. The step is lossy and irreversible: slices of any element
// type come back as Sequence, arbitrary-precision numbers as float64,
// mutable byte buffers as store-owned copies. It runs once at the
// outer write entry point; values nested inside a mapping are coerced
// again as each sub-assignment is materialized.
//
// Types with no canonical form pass through unchanged; the backend
// decides whether the serializer registry covers them and returns
// ErrType otherwise.
func Coerce(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool, string, int64, float64:
		return v, nil
	case []byte:
		// Copy so later caller mutations cannot reach stored state.
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, fmt.Errorf("%w: uint value %d overflows int64", ErrType, v)
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("%w: uint64 value %d overflows int64", ErrType, v)
		}
		return int64(v), nil
	case float32:
		return float64(v), nil
	case *big.Int:
		if !v.IsInt64() {
			f, _ := new(big.Float).SetInt(v).Float64()
			return f, nil
		}
		return v.Int64(), nil
	case *big.Float:
		f, _ := v.Float64()
		return f, nil
	case *big.Rat:
		f, _ := v.Float64()
		return f, nil
	case Sequence:
		return coerceSequence(v)
	case map[string]any:
		return v, nil
	}
	return coerceReflect(value)
}

// coerceReflect handles named types and generic containers: any slice
// or array becomes a Sequence, any string-keyed map becomes a
// map[string]any. Everything else passes through for the backend to
// judge.
func coerceReflect(value any) (any, error) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			out := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(out), rv)
			return out, nil
		}
		seq := make(Sequence, rv.Len())
		for i := range seq {
			seq[i] = rv.Index(i).Interface()
		}
		return coerceSequence(seq)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: mapping keys must be strings, got %s", ErrType, rv.Type().Key())
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			// Values stay raw here; each one is coerced when its
			// sub-assignment is written.
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, nil
	default:
		return value, nil
	}
}

// coerceSequence coerces every element eagerly: sequences are stored
// whole, so there is no later sub-assignment to catch them. Mappings
// inside sequences are rejected; tree structure lives in nodes only.
func coerceSequence(seq Sequence) (Sequence, error) {
	out := make(Sequence, len(seq))
	for i, elem := range seq {
		c, err := Coerce(elem)
		if err != nil {
			return nil, err
		}
		if _, ok := c.(map[string]any); ok {
			return nil, fmt.Errorf("%w: mapping inside a sequence", ErrType)
		}
		out[i] = c
	}
	return out, nil
}

// KindOf classifies an already-coerced value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindString
	case []byte:
		return KindBytes
	case map[string]any:
		return KindMapping
	case Sequence:
		return KindSequence
	default:
		return KindObject
	}
}
