package sgml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"edgarfeed/internal/services"
)

var (
	// ErrClassification marks sibling hierarchical tags of a name that is not
	// an array tag.
	ErrClassification = errors.New("tag classification violation")
	// ErrDuplicateTag marks a repeated data-bearing tag that is not an array tag.
	ErrDuplicateTag = errors.New("duplicate data tag")
	// ErrInlineData marks a hierarchical tag carrying data on its opening line.
	ErrInlineData = errors.New("hierarchical tag carries inline data")
	// ErrUnexpectedLine marks a line that is not an opening tag where one is
	// required.
	ErrUnexpectedLine = errors.New("unexpected line")
	// ErrTemplate marks a record the encoder cannot render.
	ErrTemplate = errors.New("record does not fit header template")
)

// FormatError describes a header that cannot be decoded or encoded.
type FormatError struct {
	Err       error
	Tag       string
	Lines     []int
	Accession string
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("sgml: ")
	b.WriteString(e.Err.Error())
	if e.Tag != "" {
		b.WriteString(": <")
		b.WriteString(e.Tag)
		b.WriteByte('>')
	}
	if len(e.Lines) > 0 {
		nums := make([]string, len(e.Lines))
		for i, n := range e.Lines {
			nums[i] = strconv.Itoa(n)
		}
		if len(nums) == 1 {
			b.WriteString(" at line ")
		} else {
			b.WriteString(" at lines ")
		}
		b.WriteString(strings.Join(nums, ", "))
	}
	if e.Accession != "" {
		fmt.Fprintf(&b, " (accession %s)", e.Accession)
	}
	return b.String()
}

// Unwrap exposes both the specific cause and the format marker.
func (e *FormatError) Unwrap() []error {
	return []error{e.Err, services.ErrFormat}
}
