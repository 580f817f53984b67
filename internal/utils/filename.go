package utils

import (
	"path/filepath"
	"strings"
)

// SanitizeFilename reduces a client-supplied filename to a single
// filesystem-safe path component. Directory parts are stripped and anything
// outside [A-Za-z0-9._-] is replaced with an underscore. Returns "" when
// nothing usable remains, which callers must treat as a rejected upload.
func SanitizeFilename(name string) string {
	// Windows clients send backslash separators that filepath.Base does not
	// split on under Linux.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}

	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" || strings.Trim(cleaned, "-") == "" {
		return ""
	}
	return cleaned
}
