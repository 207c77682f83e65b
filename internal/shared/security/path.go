// Package security holds the path guards used wherever a name from the
// network or the command line becomes part of a filesystem path.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrPathEscape indicates the resolved path would leave its base directory.
	ErrPathEscape = errors.New("path escapes base directory")
	// ErrUnsafeSegment marks a name that cannot be used as one path element.
	ErrUnsafeSegment = errors.New("unsafe path segment")
)

// CheckSegment accepts names that stay a single element once joined: no
// separators, no dot entries, no control characters.
func CheckSegment(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrUnsafeSegment, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrUnsafeSegment, name)
	case strings.IndexFunc(name, func(r rune) bool { return r < 0x20 || r == 0x7f }) >= 0:
		return fmt.Errorf("%w: %q contains control characters", ErrUnsafeSegment, name)
	}
	return nil
}

// ResolveWithin joins elems under base and returns the absolute result, or
// ErrPathEscape if it would land outside base.
func ResolveWithin(base string, elems ...string) (string, error) {
	if base == "" {
		return "", errors.New("base directory is required")
	}
	root, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}

	target := filepath.Join(append([]string{root}, elems...)...)
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("relativize path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, target)
	}
	return target, nil
}
