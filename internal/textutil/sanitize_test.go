package textutil_test

import (
	"testing"

	"edgarfeed/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "g123456g01.jpg", want: "g123456g01.jpg"},
		{in: "  form4.xml ", want: "form4.xml"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `C:\filings\ex99.htm`, want: "ex99.htm"},
		{in: "ex*1?.htm", want: "ex-1.htm"},
		{in: "..", want: ""},
		{in: "dir/", want: ""},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := textutil.SanitizeFileName(tt.in); got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFallbackFileName(t *testing.T) {
	if got := textutil.FallbackFileName("", 3); got != "document-3" {
		t.Fatalf("unexpected fallback %q", got)
	}
	if got := textutil.FallbackFileName("../x.pdf", 3); got != "x.pdf" {
		t.Fatalf("unexpected name %q", got)
	}
}
