package dispatch

import (
	"time"
)

// FileTiming names a file and how long its worker took.
type FileTiming struct {
	File    string
	Elapsed time.Duration
	Bytes   int64
}

// DayStats aggregates results for one feed day. Add is commutative, so the
// totals do not depend on completion order.
type DayStats struct {
	Day       string
	Files     int
	OK        int
	Failed    int
	TimedOut  int
	Bytes     int64
	Documents int
	Slowest   FileTiming
	// Categories counts failed files per error category.
	Categories map[string]int
	Elapsed    time.Duration
}

// Add folds one completed result into the totals.
func (s *DayStats) Add(file string, ok bool, category string, elapsed time.Duration, bytes int64, documents int) {
	if ok {
		s.OK++
	} else {
		s.Failed++
		if s.Categories == nil {
			s.Categories = make(map[string]int)
		}
		if category == "" {
			category = "unknown"
		}
		s.Categories[category]++
	}
	s.Bytes += bytes
	s.Documents += documents
	if slower(FileTiming{File: file, Elapsed: elapsed, Bytes: bytes}, s.Slowest) {
		s.Slowest = FileTiming{File: file, Elapsed: elapsed, Bytes: bytes}
	}
}

// slower reports whether a should replace b as the slowest file. Ties go to
// the lexically smaller name.
func slower(a, b FileTiming) bool {
	if b.File == "" {
		return true
	}
	if a.Elapsed != b.Elapsed {
		return a.Elapsed > b.Elapsed
	}
	return a.File < b.File
}

// Completed returns the number of files that produced a result.
func (s DayStats) Completed() int {
	return s.OK + s.Failed
}

// ErrorRatio returns the share of files that failed or timed out.
func (s DayStats) ErrorRatio() float64 {
	if s.Files == 0 {
		return 0
	}
	return float64(s.Failed+s.TimedOut) / float64(s.Files)
}
