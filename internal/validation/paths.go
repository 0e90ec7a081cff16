// Package validation checks file names that arrive from the backend before
// they are joined onto a local directory.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilename rejects a name that is not a single path element:
// empty, "." or "..", or containing a separator or NUL.
// Names such as "sales..v2.xlsx" are allowed.
func ValidateFilename(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("filename cannot be empty")
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("filename contains null byte: %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("filename cannot contain path separators: %s", name)
	case name == "." || name == "..":
		return fmt.Errorf("filename cannot be %q", name)
	}
	return nil
}

// JoinInDirectory validates name and returns dir/name, refusing any result
// that would resolve outside dir.
func JoinInDirectory(dir, name string) (string, error) {
	if err := ValidateFilename(name); err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	path := filepath.Join(base, name)
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s escapes %s", name, dir)
	}
	return filepath.Join(dir, name), nil
}
