package platform

import (
	"os"
	"regexp"
	"strings"
)

// Package platform holds small filesystem helpers shared by the pipeline and
// the application root.

// DefaultDirPermissions is used for the scratch directory.
const DefaultDirPermissions = 0755

// unsafeFilenameChars matches characters that must never end up in a path
// component derived from an external title.
var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename strips characters that are unsafe in a filename from a
// title obtained from an external source. The result is trimmed; an empty
// result falls back to "media".
func SanitizeFilename(name string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(name, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "media"
	}
	return cleaned
}

// CreateDirectoryIfNotExists creates the directory if it doesn't exist.
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}
