package uuencode_test

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"edgarfeed/internal/uuencode"
)

func TestRoundTripAllLengths(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 0; n <= 200; n++ {
		payload := make([]byte, n)
		rng.Read(payload)
		encoded := uuencode.Encode(payload, "f.bin")
		decoded, err := uuencode.Decode(encoded)
		if err != nil {
			t.Fatalf("len %d: decode failed: %v", n, err)
		}
		if !bytes.Equal(decoded, payload) {
			t.Fatalf("len %d: round trip mismatch", n)
		}
	}
}

func TestRoundTripZeroHeavyPayloads(t *testing.T) {
	for n := 0; n <= 96; n++ {
		payload := make([]byte, n)
		for i := range payload {
			if i%7 == 0 {
				payload[i] = 0x40
			}
		}
		decoded, err := uuencode.Decode(uuencode.Encode(payload, "zeros.bin"))
		if err != nil {
			t.Fatalf("len %d: decode failed: %v", n, err)
		}
		if !bytes.Equal(decoded, payload) {
			t.Fatalf("len %d: round trip mismatch", n)
		}
	}
}

func TestEncodeMatchesLegacyReference(t *testing.T) {
	sequential := make([]byte, 48)
	for i := range sequential {
		sequential[i] = byte(i)
	}
	cases := []struct {
		name    string
		payload []byte
		want    string
	}{
		{"empty", nil, "begin 644 f.bin\n`\nend\n"},
		{"remainder 0", []byte("ABC"), "begin 644 f.bin\n#04)#\n`\nend\n"},
		{"remainder 1", []byte("A"), "begin 644 f.bin\n!00$!\n`\nend\n"},
		{"seven bytes", []byte("EDGAR07"), "begin 644 f.bin\n'141'05(P-P$!\n`\nend\n"},
		{"remainder 2 plain", []byte("AB"), "begin 644 f.bin\n\"04(!\n`\nend\n"},
		{"remainder 2 single space fix", []byte{0x41, 0x40}, "begin 644 f.bin\n\"04`!\n`\nend\n"},
		{"remainder 2 double space fix", []byte{0x40, 0x00}, "begin 644 f.bin\n\"0``!\n`\nend\n"},
		{
			"full line then remainder 0",
			sequential,
			"begin 644 f.bin\nM  $\" P0%!@<(\"0H+# T.#Q 1$A,4%187&!D:&QP='A\\@(2(C)\"4F)R@I*BLL\n#+2XO\n`\nend\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := uuencode.Encode(tc.payload, "f.bin")
			if got != tc.want {
				t.Fatalf("encode mismatch\nwant %q\ngot  %q", tc.want, got)
			}
		})
	}
}

func TestSevenBytePayloadRoundTrip(t *testing.T) {
	payload := []byte("EDGAR07")
	encoded := uuencode.Encode(payload, "f.bin")
	lines := strings.Split(encoded, "\n")
	if lines[1] != "'141'05(P-P$!" {
		t.Fatalf("unexpected data line %q", lines[1])
	}
	decoded, err := uuencode.Decode(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Fatalf("expected %q, got %q", payload, decoded)
	}
}

func TestEncodeStripsTrailingSpaces(t *testing.T) {
	payload := make([]byte, 45)
	payload[0] = 0xff
	encoded := uuencode.Encode(payload, "blank.bin")
	for _, line := range strings.Split(encoded, "\n") {
		if strings.HasSuffix(line, " ") {
			t.Fatalf("line %q keeps trailing spaces", line)
		}
	}
}

func TestRepadLine(t *testing.T) {
	payload := make([]byte, 45)
	payload[0] = 0xff
	line := uuencode.EncodeLine(payload, false)
	if len(line) >= uuencode.LineWidth {
		t.Fatalf("expected stripped line, got width %d", len(line))
	}
	padded := uuencode.RepadLine(line)
	if len(padded) != uuencode.LineWidth {
		t.Fatalf("expected width %d, got %d", uuencode.LineWidth, len(padded))
	}
	for _, framing := range []string{"begin 644 x.pdf", "end", "`"} {
		if got := uuencode.RepadLine(framing); got != framing {
			t.Fatalf("framing line %q changed to %q", framing, got)
		}
	}
}

func TestDecodeRejectsInvalidCharacters(t *testing.T) {
	if _, err := uuencode.Decode("begin 644 x\n#0\x7f)#\nend\n"); err == nil {
		t.Fatal("expected error for invalid character")
	}
}

func TestDecodeAcceptsBacktickZero(t *testing.T) {
	decoded, err := uuencode.Decode("begin 644 x\n\"0``!\n`\nend\n")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(decoded, []byte{0x40, 0x00}) {
		t.Fatalf("unexpected bytes %v", decoded)
	}
}
