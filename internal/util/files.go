package util

import (
	"path/filepath"
	"regexp"
	"strings"
)

var safeNameRE = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeFilename sanitizes an arbitrary identifier into a name safe to use as
// a temp-file component: no path separators, no characters outside
// [a-zA-Z0-9._-].
func SafeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" {
		return "file"
	}
	name = safeNameRE.ReplaceAllString(name, "_")
	if name == "" {
		return "file"
	}
	return name
}
