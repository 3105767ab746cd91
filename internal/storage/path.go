package storage

import (
	"fmt"
	"regexp"
	"strings"
)

// PathSep separates keys inside a path. A path starting with PathSep
// is resolved against the backend's true root. The regexes below
// encode the same separator.
const PathSep = "/"

var (
	reKey       = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
	reFirstRest = regexp.MustCompile(`^([A-Za-z0-9_.]+)/([A-Za-z0-9_./]+)$`)
	reBeginLast = regexp.MustCompile(`^(([A-Za-z0-9_.][A-Za-z0-9_./]*)/)?([A-Za-z0-9_.]+)$`)
)

// IsKey reports whether s is a single valid key.
func IsKey(s string) bool {
	return reKey.MatchString(s)
}

// IsAbsolute reports whether path addresses the true root regardless
// of the current nesting depth.
func IsAbsolute(path string) bool {
	return strings.HasPrefix(path, PathSep)
}

// SplitFirst splits a path at its first separator: "a/b/c" becomes
// ("a", "b/c") and a bare key k becomes (k, ""). Empty strings,
// leading separators and other malformed paths return ErrKey.
func SplitFirst(path string) (first, rest string, err error) {
	if IsKey(path) {
		return path, "", nil
	}
	if m := reFirstRest.FindStringSubmatch(path); m != nil {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("%w: invalid key or path %q", ErrKey, path)
}

// SplitLast splits a path at its last separator: "a/b/c" becomes
// ("a/b", "c") and a bare key k becomes ("", k). Malformed paths
// return ErrKey.
//
// Doubled separators survive this split ("a//b" yields begin "a/")
// and fail one resolution step later when the begin path is itself
// decomposed.
func SplitLast(path string) (begin, last string, err error) {
	m := reBeginLast.FindStringSubmatch(path)
	if m == nil {
		return "", "", fmt.Errorf("%w: invalid key or path %q", ErrKey, path)
	}
	return m[2], m[3], nil
}
