package domain

import (
	"fmt"
	"path"
	"strings"
)

// SourceRef is a normalized, traversal-safe relative path to an object in the
// source bucket. It is produced exactly once per request, before any use as a
// storage key or cache-key input.
type SourceRef string

// ParseSourceRef normalizes a raw image path. Leading separators are
// stripped, redundant segments collapsed, and any path that still reaches for
// a parent directory after cleaning is rejected.
func ParseSourceRef(raw string) (SourceRef, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/"))
	if raw == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidSourcePath)
	}

	cleaned := path.Clean(strings.TrimLeft(raw, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSourcePath, raw)
	}
	return SourceRef(cleaned), nil
}

// Dir returns the directory portion of the ref, "." for a root-level object.
func (r SourceRef) Dir() string {
	return path.Dir(string(r))
}

// Base returns the filename portion of the ref.
func (r SourceRef) Base() string {
	return path.Base(string(r))
}

func (r SourceRef) String() string {
	return string(r)
}
