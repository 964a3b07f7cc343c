package textutil

import (
	"strconv"
	"strings"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SanitizeFileName reduces a declared document filename to its last path
// segment with unsafe characters removed. Colons and asterisks become
// dashes. Names that reduce to nothing, "." or ".." return "".
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.TrimSpace(fileNameReplacer.Replace(name))
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// FallbackFileName returns the sanitized name, or document-<index> when the
// declared name is unusable.
func FallbackFileName(name string, index int) string {
	if clean := SanitizeFileName(name); clean != "" {
		return clean
	}
	return "document-" + strconv.Itoa(index)
}
