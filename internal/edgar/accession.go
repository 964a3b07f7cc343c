package edgar

import (
	"fmt"
	"regexp"
	"strconv"
)

var accessionPattern = regexp.MustCompile(`^(\d{10})-(\d{2})-(\d{6})$`)

// Accession is an EDGAR accession number in NNNNNNNNNN-YY-NNNNNN form.
type Accession string

// ParseAccession validates an accession number string.
func ParseAccession(value string) (Accession, error) {
	if !accessionPattern.MatchString(value) {
		return "", fmt.Errorf("invalid accession number %q", value)
	}
	return Accession(value), nil
}

// Int packs the accession number into a single integer:
// filer*10^8 + year*10^6 + sequence.
func (a Accession) Int() (int64, error) {
	parts := accessionPattern.FindStringSubmatch(string(a))
	if parts == nil {
		return 0, fmt.Errorf("invalid accession number %q", string(a))
	}
	filer, _ := strconv.ParseInt(parts[1], 10, 64)
	year, _ := strconv.ParseInt(parts[2], 10, 64)
	seq, _ := strconv.ParseInt(parts[3], 10, 64)
	return filer*100_000_000 + year*1_000_000 + seq, nil
}

// AccessionFromInt unpacks an integer produced by Accession.Int.
func AccessionFromInt(value int64) (Accession, error) {
	if value < 0 || value > 9_999_999_999_99_999_999 {
		return "", fmt.Errorf("accession integer %d out of range", value)
	}
	filer := value / 100_000_000
	year := (value / 1_000_000) % 100
	seq := value % 1_000_000
	return Accession(fmt.Sprintf("%010d-%02d-%06d", filer, year, seq)), nil
}

func (a Accession) String() string {
	return string(a)
}

// PadCIK renders a central index key as a zero-padded 10-digit string.
// Non-numeric input is returned unchanged.
func PadCIK(value string) string {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return value
	}
	return fmt.Sprintf("%010d", n)
}
