package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameLen = 128

// SanitizeFileName flattens path separators, drops control characters and
// caps the length. Traversal patterns are rejected.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if s == "" {
		return "", errors.New("invalid file name")
	}
	if len(s) > maxFileNameLen {
		s = s[len(s)-maxFileNameLen:]
	}
	return s, nil
}
