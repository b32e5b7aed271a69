package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a relative path would leave its base.
var ErrPathTraversal = errors.New("path traversal attempt detected")

// JoinPathSafe joins rel onto base and fails if the result is outside base.
// Generated file paths come from the service and are untrusted.
func JoinPathSafe(base, rel string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("base path cannot be empty")
	}
	if rel == "" || strings.Contains(rel, "\x00") {
		return "", fmt.Errorf("invalid relative path %q", rel)
	}

	rel = filepath.FromSlash(rel)
	if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", fmt.Errorf("%w: %s is absolute", ErrPathTraversal, rel)
	}

	cleanBase := filepath.Clean(base)
	joined := filepath.Join(cleanBase, rel)

	within, err := filepath.Rel(cleanBase, joined)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) || within == "." {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, rel)
	}
	return joined, nil
}

// SanitizeFilename replaces characters that are unsafe in a single path
// element.
func SanitizeFilename(name string) string {
	dangerous := []string{"\x00", "..", "/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	for _, c := range dangerous {
		name = strings.ReplaceAll(name, c, "_")
	}
	return name
}
