package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/hira/internal/errors"
)

// ValidateExportPath checks a path an export is about to write:
// no ".." components, a .jsonl extension, and no symlink at the final
// component or its parent directory.
func ValidateExportPath(path string) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}

	// Reject paths containing ".." (traversal attempt)
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	// Require .jsonl extension
	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != ".jsonl" {
		return errors.NewInvalidRequest("path must have .jsonl extension")
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	// Exports land wherever the user points them, but never through a symlinked parent
	if info, err := os.Lstat(filepath.Dir(absPath)); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}

	// O_NOFOLLOW rejects this at open time too; checking here gives a clearer error.
	if info, err := os.Lstat(absPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}

	return nil
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	// Check each path component
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Forward slashes count on every platform
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}

// SanitizeForFilename sanitizes a string for safe use in a filename.
// Removes/replaces characters that could be used for path traversal or injection.
func SanitizeForFilename(s string) string {
	// Replace path separators with dashes
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")

	// Replace ".." sequences (could be embedded)
	s = strings.ReplaceAll(s, "..", "-")

	// Remove null bytes and other control characters
	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	s = result.String()

	// Collapse multiple dashes
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")

	// If empty after sanitization, use a safe default
	if s == "" {
		s = "unnamed"
	}
	return s
}
