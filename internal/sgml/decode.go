package sgml

import (
	"strings"

	"edgarfeed/internal/tags"
)

// DecodeOption adjusts decoding.
type DecodeOption func(*decoder)

// WithLineNumbers supplies the source line number of each input line, used in
// error messages instead of 1-based slice positions.
func WithLineNumbers(numbers []int) DecodeOption {
	return func(d *decoder) {
		d.numbers = numbers
	}
}

// WithClassifier replaces the tag classification table. Tests use it to
// decode against a reduced table.
func WithClassifier(classify func(name string) tags.Class) DecodeOption {
	return func(d *decoder) {
		d.classify = classify
	}
}

type decoder struct {
	lines     []string
	numbers   []int
	classify  func(name string) tags.Class
	accession string
}

type tagLine struct {
	name    string
	data    string
	closing bool
}

// Decode converts a flat header line sequence into a record tree. A single
// <SUBMISSION> root is unwrapped, so the returned record holds the
// submission's fields directly.
func Decode(lines []string, opts ...DecodeOption) (*Record, error) {
	trimmed := make([]string, len(lines))
	for i, line := range lines {
		trimmed[i] = strings.TrimSpace(line)
	}
	d := &decoder{lines: trimmed, classify: tags.Classify}
	for _, opt := range opts {
		opt(d)
	}
	d.accession = findAccession(trimmed)

	root, err := d.decodeRange(0, len(trimmed))
	if err != nil {
		return nil, err
	}
	if root.Len() == 1 {
		if v, ok := root.Get("submission"); ok && v.Kind == ValueRecord {
			return v.Record, nil
		}
	}
	return root, nil
}

func (d *decoder) decodeRange(start, end int) (*Record, error) {
	rec := NewRecord()
	firstLine := make(map[string][]int)

	for i := start; i < end; {
		line := d.lines[i]
		if line == "" {
			i++
			continue
		}
		tag, ok := parseTagLine(line)
		if !ok || tag.closing {
			name := ""
			if ok {
				name = tag.name
			}
			return nil, d.errorAt(ErrUnexpectedLine, name, i)
		}

		closeAt := d.findClose(tag.name, i+1, end)
		if closeAt >= 0 {
			if tag.data != "" && !d.classify(tag.name).Root {
				return nil, d.errorAt(ErrInlineData, tag.name, i)
			}
			child, err := d.decodeRange(i+1, closeAt)
			if err != nil {
				return nil, err
			}
			child.Inline = tag.data
			if err := d.add(rec, tag.name, Nested(child), i, firstLine); err != nil {
				return nil, err
			}
			i = closeAt + 1
			continue
		}

		value := Text(tag.data)
		if tag.data == "" && d.classify(tag.name).Kind == tags.KindFlag {
			value = Flag(true)
		}
		if err := d.add(rec, tag.name, value, i, firstLine); err != nil {
			return nil, err
		}
		i++
	}
	return rec, nil
}

// findClose returns the index of the close tag matching an opening tag named
// name, searching [from, end) and skipping nested openings of the same name.
func (d *decoder) findClose(name string, from, end int) int {
	depth := 0
	for j := from; j < end; j++ {
		line := d.lines[j]
		if len(line) < 3 || line[0] != '<' {
			continue
		}
		tag, ok := parseTagLine(line)
		if !ok || tag.name != name {
			continue
		}
		if tag.closing {
			if depth == 0 {
				return j
			}
			depth--
			continue
		}
		if tag.data == "" && d.findCloseShallow(name, j+1, end) {
			depth++
		}
	}
	return -1
}

// findCloseShallow reports whether any close tag for name exists in
// [from, end). It keeps bare data-less repeats of a scalar from being counted
// as nesting levels.
func (d *decoder) findCloseShallow(name string, from, end int) bool {
	closing := "</" + name + ">"
	for j := from; j < end; j++ {
		if d.lines[j] == closing {
			return true
		}
	}
	return false
}

func (d *decoder) add(rec *Record, name string, value Value, idx int, firstLine map[string][]int) error {
	key := tags.KeyFor(name)
	class := d.classify(name)
	existing, seen := rec.Get(key)
	firstLine[key] = append(firstLine[key], idx)

	if !seen {
		if class.Kind == tags.KindArray {
			switch value.Kind {
			case ValueRecord:
				value = NestedList(value.Record)
			case ValueText:
				value = List(value.Text)
			}
		}
		rec.Set(key, value)
		return nil
	}

	if class.Kind != tags.KindArray {
		marker := ErrDuplicateTag
		if value.Kind == ValueRecord || existing.Kind == ValueRecord {
			marker = ErrClassification
		}
		return d.errorAtAll(marker, name, firstLine[key])
	}

	switch {
	case existing.Kind == ValueRecords && value.Kind == ValueRecord:
		existing.Records = append(existing.Records, value.Record)
	case existing.Kind == ValueList && value.Kind == ValueText:
		existing.List = append(existing.List, value.Text)
	default:
		return d.errorAtAll(ErrClassification, name, firstLine[key])
	}
	rec.Set(key, existing)
	return nil
}

func (d *decoder) lineNumber(idx int) int {
	if idx < len(d.numbers) {
		return d.numbers[idx]
	}
	return idx + 1
}

func (d *decoder) errorAt(marker error, name string, idx int) error {
	return d.errorAtAll(marker, name, []int{idx})
}

func (d *decoder) errorAtAll(marker error, name string, indexes []int) error {
	lines := make([]int, len(indexes))
	for i, idx := range indexes {
		lines[i] = d.lineNumber(idx)
	}
	return &FormatError{Err: marker, Tag: name, Lines: lines, Accession: d.accession}
}

func parseTagLine(line string) (tagLine, bool) {
	if len(line) < 3 || line[0] != '<' {
		return tagLine{}, false
	}
	end := strings.IndexByte(line, '>')
	if end < 2 {
		return tagLine{}, false
	}
	name := line[1:end]
	closing := false
	if name[0] == '/' {
		closing = true
		name = name[1:]
	}
	if name == "" || strings.ContainsAny(name, " <") {
		return tagLine{}, false
	}
	return tagLine{
		name:    strings.ToUpper(name),
		data:    strings.TrimSpace(line[end+1:]),
		closing: closing,
	}, true
}

func findAccession(lines []string) string {
	const prefix = "<ACCESSION-NUMBER>"
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return ""
}
