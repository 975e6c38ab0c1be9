// Package urlpath validates request paths before they become access
// control locations.
package urlpath

import (
	"errors"
	"path"
	"strings"
)

var (
	ErrNotCanonical = errors.New("path is not absolute and normalized")
	ErrHasFragment  = errors.New("path contains a fragment ('#' part)")
	ErrHasQuery     = errors.New("path contains a query ('?' part)")
	ErrHasParams    = errors.New("path contains parameters (';' part)")
)

// IsCanonical reports whether p is an absolute, normalized path: starts
// with '/', no NUL bytes, no duplicate slashes, no '.' or '..' segments.
// A single trailing slash is allowed ("/pub/" is canonical).
func IsCanonical(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	if strings.ContainsRune(p, 0) {
		return false
	}
	if strings.Contains(p, "//") {
		return false
	}
	cleaned := path.Clean(p)
	return cleaned == p || cleaned+"/" == p
}

// ContainsFragment reports whether p has a '#' component.
func ContainsFragment(p string) bool {
	return strings.Contains(p, "#")
}

// ContainsQuery reports whether p has a '?' component.
func ContainsQuery(p string) bool {
	return strings.Contains(p, "?")
}

// ContainsParams reports whether p has a ';' component.
func ContainsParams(p string) bool {
	return strings.Contains(p, ";")
}

// Validate runs all checks in order and returns the first failure.
// Locations reject non-canonical paths at creation time; lookups never
// call this.
func Validate(p string) error {
	if !IsCanonical(p) {
		return ErrNotCanonical
	}
	if ContainsFragment(p) {
		return ErrHasFragment
	}
	if ContainsQuery(p) {
		return ErrHasQuery
	}
	if ContainsParams(p) {
		return ErrHasParams
	}
	return nil
}
