package util

import (
	"errors"
	"path/filepath"
	"strings"
)

const (
	maxFileNameLength = 255
	maxQuestionLength = 10000
)

// ErrInvalidFileName is returned when a file name fails validation.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName validates an uploaded file name. It rejects empty names,
// names over 255 characters, traversal patterns, and names containing control
// or path-special characters.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return "", ErrInvalidFileName
	}
	if len(s) > maxFileNameLength {
		return "", ErrInvalidFileName
	}
	if strings.Contains(s, "..") {
		return "", ErrInvalidFileName
	}
	for _, r := range s {
		if r < 0x20 || strings.ContainsRune(`<>:"/\|?*`, r) {
			return "", ErrInvalidFileName
		}
	}
	return s, nil
}

// HasPDFExtension reports whether the file name ends in .pdf (case-insensitive).
func HasPDFExtension(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == ".pdf"
}

// SanitizeQuestion trims a chat question, strips control characters other than
// newline, carriage return and tab, and caps the length at 10000 characters.
func SanitizeQuestion(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	kept := 0
	for _, r := range text {
		if r >= 0x20 || r == '\n' || r == '\r' || r == '\t' {
			if kept == maxQuestionLength {
				break
			}
			b.WriteRune(r)
			kept++
		}
	}
	return b.String()
}
