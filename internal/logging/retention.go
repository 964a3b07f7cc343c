package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"edgarfeed/internal/edgar"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// logDayStamp matches the YYYYMMDD stamp NewFromConfig puts in run log names.
var logDayStamp = regexp.MustCompile(`(\d{8})\.log$`)

// CleanupOldLogs removes run logs older than retentionDays and returns how
// many were pruned. Age comes from the day stamp in the file name when there
// is one and from the modification time otherwise. A retentionDays value of
// 0 disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	now := time.Now()
	cutoff := now.AddDate(0, 0, -retentionDays)

	pruned := 0
	for _, target := range targets {
		dir := strings.TrimSpace(target.Dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		skip := excluded(target.Exclude)
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if pat := strings.TrimSpace(target.Pattern); pat != "" {
				if matched, err := filepath.Match(pat, name); err != nil || !matched {
					continue
				}
			}
			fullPath := filepath.Join(dir, name)
			if abs, err := filepath.Abs(fullPath); err == nil {
				fullPath = abs
			}
			if _, ok := skip[fullPath]; ok {
				continue
			}
			written, ok := logAge(entry, name)
			if !ok || !written.Before(cutoff) {
				continue
			}
			if err := os.Remove(fullPath); err != nil {
				WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
					String("path", fullPath),
					Error(err),
					String(FieldErrorHint, "check file permissions on paths.state_dir"),
					String(FieldImpact, "old run log remains on disk"),
				)
				continue
			}
			pruned++
		}
	}
	if pruned > 0 && logger != nil {
		logger.Info("old run logs pruned",
			Int("files", pruned),
			Int("retention_days", retentionDays),
			String(FieldEventType, "log_pruned"),
		)
	}
	return pruned
}

func logAge(entry os.DirEntry, name string) (time.Time, bool) {
	if m := logDayStamp.FindStringSubmatch(name); m != nil {
		if day, err := time.Parse(edgar.DayLayout, m[1]); err == nil {
			// The log covers the whole stamped day.
			return day.AddDate(0, 0, 1), true
		}
	}
	info, err := entry.Info()
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func excluded(paths []string) map[string]struct{} {
	out := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if abs, err := filepath.Abs(trimmed); err == nil {
			out[abs] = struct{}{}
		}
	}
	return out
}
