package storage

import (
	"errors"
	"fmt"
)

// ErrStorage is the base error every storage failure wraps.
// errors.Is(err, ErrStorage) holds for all errors this subsystem
// returns, including the backend-specific ones.
var ErrStorage = errors.New("storage")

var (
	// ErrKey reports a missing key or a malformed key/path.
	ErrKey = fmt.Errorf("%w: key", ErrStorage)

	// ErrMappingExpected reports a path segment that addressed a
	// scalar value where a mapping was required.
	ErrMappingExpected = fmt.Errorf("%w: mapping expected", ErrStorage)

	// ErrType reports a value whose type no backend encoding covers
	// after coercion.
	ErrType = fmt.Errorf("%w: unsupported type", ErrStorage)
)
