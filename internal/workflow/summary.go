package workflow

import (
	"sort"

	"edgarfeed/internal/dispatch"
)

// Day outcomes.
const (
	DayIndexed   = "indexed"
	DayMissing   = "missing"
	DayAbandoned = "abandoned"
)

// DayResult is the final outcome of one calendar day.
type DayResult struct {
	Day      string
	Status   string
	Attempts int
	Archive  FetchResult
	Stats    dispatch.DayStats
	Err      string
}

// Summary reports a run. Retries counts re-queues per day (YYYYMMDD).
type Summary struct {
	Days    []DayResult
	Retries map[string]int
}

// Sorted returns the day results in calendar order.
func (s Summary) Sorted() []DayResult {
	out := append([]DayResult(nil), s.Days...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// Count returns how many days ended with status.
func (s Summary) Count(status string) int {
	n := 0
	for _, d := range s.Days {
		if d.Status == status {
			n++
		}
	}
	return n
}

// Abandoned lists the days given up after the retry cap.
func (s Summary) Abandoned() []string {
	var out []string
	for _, d := range s.Sorted() {
		if d.Status == DayAbandoned {
			out = append(out, d.Day)
		}
	}
	return out
}
