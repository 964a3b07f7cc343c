package uuencode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed marks input that is not valid UUENCODE.
var ErrMalformed = errors.New("malformed uuencode")

// Decode decodes a UUENCODE block. The begin and end framing lines and the
// zero-length terminator line are skipped; lines shortened by trailing-space
// stripping are padded back before decoding.
func Decode(text string) ([]byte, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]byte, 0, len(text)*3/4)

	for idx, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "begin "):
			continue
		case line == "end":
			return out, nil
		}

		n := int(decodeChar(line[0]))
		if n == 0 {
			continue
		}
		decoded, err := DecodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", idx+1, err)
		}
		out = append(out, decoded...)
	}
	return out, nil
}

// DecodeLine decodes a single data line.
func DecodeLine(line string) ([]byte, error) {
	if line == "" {
		return nil, nil
	}
	n := int(decodeChar(line[0]))
	if n > LineBytes {
		return nil, fmt.Errorf("%w: length %d exceeds %d", ErrMalformed, n, LineBytes)
	}
	groups := (n + 2) / 3
	body := line[1:]
	if len(body) < groups*4 {
		body += strings.Repeat(" ", groups*4-len(body))
	}

	out := make([]byte, 0, groups*3)
	for g := 0; g < groups; g++ {
		quad := body[g*4 : g*4+4]
		for i := 0; i < 4; i++ {
			if quad[i] < ' ' || quad[i] > '`' {
				return nil, fmt.Errorf("%w: invalid character %q", ErrMalformed, quad[i])
			}
		}
		c0, c1, c2, c3 := decodeChar(quad[0]), decodeChar(quad[1]), decodeChar(quad[2]), decodeChar(quad[3])
		out = append(out,
			c0<<2|c1>>4,
			c1<<4|c2>>2,
			c2<<6|c3,
		)
	}
	return out[:n], nil
}

func decodeChar(c byte) byte {
	return (c - ' ') & 0x3f
}
