package uuencode

import (
	"strings"
)

const (
	// LineBytes is the number of payload bytes carried by a full line.
	LineBytes = 45
	// LineWidth is the character width of a full line (length char + 60).
	LineWidth = 61

	padByte = 0x01
	mode    = "644"
)

// suffixCorrections are the literal final-line rewrites needed to match the
// legacy encoder when the trailing byte count is 2 mod 3. Order matters: the
// longer suffix contains the shorter one.
var suffixCorrections = []struct {
	from string
	to   string
}{
	{from: "  !", to: "``!"},
	{from: " !", to: "`!"},
}

// Encode renders data as an EDGAR-compatible UUENCODE block, including the
// begin line, the backtick terminator and the end line.
func Encode(data []byte, filename string) string {
	var b strings.Builder
	lines := (len(data) + LineBytes - 1) / LineBytes
	b.Grow(len("begin 644 \n`\nend\n") + len(filename) + lines*(LineWidth+1))

	b.WriteString("begin ")
	b.WriteString(mode)
	b.WriteByte(' ')
	b.WriteString(filename)
	b.WriteByte('\n')

	for offset := 0; offset < len(data); offset += LineBytes {
		end := min(offset+LineBytes, len(data))
		b.WriteString(EncodeLine(data[offset:end], end == len(data)))
		b.WriteByte('\n')
	}

	b.WriteString("`\nend\n")
	return b.String()
}

// EncodeLine encodes up to 45 bytes as one UUENCODE line without a trailing
// newline. final marks the last data line of a payload, the only line the
// suffix corrections apply to.
func EncodeLine(chunk []byte, final bool) string {
	n := len(chunk)
	remainder := n % 3
	if remainder != 0 {
		padded := make([]byte, n+3-remainder)
		copy(padded, chunk)
		for i := n; i < len(padded); i++ {
			padded[i] = padByte
		}
		chunk = padded
	}

	line := make([]byte, 0, 1+len(chunk)/3*4)
	line = append(line, encodeChar(byte(n)))
	for i := 0; i < len(chunk); i += 3 {
		a, b, c := chunk[i], chunk[i+1], chunk[i+2]
		line = append(line,
			encodeChar(a>>2),
			encodeChar((a&0x03)<<4|b>>4),
			encodeChar((b&0x0f)<<2|c>>6),
			encodeChar(c&0x3f),
		)
	}

	out := strings.TrimRight(string(line), " ")
	if final && remainder == 2 {
		out = correctSuffix(out)
	}
	return out
}

func correctSuffix(line string) string {
	for _, fix := range suffixCorrections {
		if strings.HasSuffix(line, fix.from) {
			return strings.TrimSuffix(line, fix.from) + fix.to
		}
	}
	return line
}

func encodeChar(v byte) byte {
	return (v & 0x3f) + ' '
}

// RepadLine restores the trailing spaces the encoder strips, so a data line
// regains its full width (61 characters for a full 45-byte line). Framing
// lines and lines that are already wide enough are returned unchanged.
func RepadLine(line string) string {
	if line == "" || IsFramingLine(line) {
		return line
	}
	n := int(decodeChar(line[0]))
	if n == 0 {
		return line
	}
	width := 1 + (n+2)/3*4
	if len(line) >= width {
		return line
	}
	return line + strings.Repeat(" ", width-len(line))
}

// IsFramingLine reports whether line is a begin, end or terminator line.
func IsFramingLine(line string) bool {
	trimmed := strings.TrimRight(line, "\r")
	return strings.HasPrefix(trimmed, "begin ") || trimmed == "end" || trimmed == "`"
}
