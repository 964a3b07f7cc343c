package sgml

import "strings"

// Unpersisted document keys. They are derived from the stream by the
// submission parser and are not part of the header as filed.
var derivedDocumentKeys = []string{"raw_size", "size"}

// Normalize unifies line endings, collapses runs of blank lines and trims the
// text. Encoded headers are compared in normalized form.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Cleanup returns a copy of rec without the fields that are never persisted.
func Cleanup(rec *Record) *Record {
	out := rec.Clone()
	for _, doc := range out.Children("document") {
		for _, key := range derivedDocumentKeys {
			doc.Delete(key)
		}
	}
	return out
}
