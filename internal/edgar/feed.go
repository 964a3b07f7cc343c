package edgar

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DayLayout is the YYYYMMDD layout used in feed archive names.
const DayLayout = "20060102"

// ArchiveName returns the feed archive file name for a day.
func ArchiveName(day time.Time) string {
	return day.Format(DayLayout) + ".nc.tar.gz"
}

// ArchiveDirName returns the directory an archive unpacks into.
func ArchiveDirName(day time.Time) string {
	return day.Format(DayLayout) + ".nc"
}

// Quarter returns the calendar quarter (1-4) of a day.
func Quarter(day time.Time) int {
	return (int(day.Month())-1)/3 + 1
}

// ArchiveURL builds the feed archive URL for a day below the feed root
// (https://www.sec.gov/Archives/edgar/Feed): <root>/<year>/QTR<q>/<YYYYMMDD>.nc.tar.gz
func ArchiveURL(feedRoot string, day time.Time) string {
	base := strings.TrimRight(feedRoot, "/")
	return base + path.Join("/", fmt.Sprintf("%d", day.Year()), fmt.Sprintf("QTR%d", Quarter(day)), ArchiveName(day))
}

// IsWeekend reports whether the feed publishes nothing on day.
func IsWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NextBusinessDay returns the first weekday strictly after day.
func NextBusinessDay(day time.Time) time.Time {
	next := day.AddDate(0, 0, 1)
	for IsWeekend(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Truncate drops the time of day, keeping the calendar date in UTC.
func Truncate(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FilingOutputPaths returns the per-submission record and document base
// paths: <filingsDir>/<accession>/<feedDate>_<file>.
func FilingOutputPaths(filingsDir string, accession Accession, feedDate time.Time, file string) (string, string) {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	stem := filepath.Join(filingsDir, string(accession), feedDate.Format(DayLayout)+"_"+base)
	return stem + ".sgml", stem + ".json"
}
