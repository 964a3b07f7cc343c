package preflight

import (
	"context"

	"edgarfeed/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Feeds directory", cfg.Paths.FeedsDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if cfg.Output.WriteJSON || cfg.Output.ExtractFiles {
		results = append(results, CheckDirectoryAccess("Filings directory", cfg.Paths.FilingsDir))
	}
	if cfg.Blob.Backend == config.BlobBackendFS && cfg.Output.UploadDocuments {
		results = append(results, CheckDirectoryAccess("Blob directory", cfg.Blob.Dir))
	}
	results = append(results, CheckUserAgent(cfg.Archive.UserAgent))
	return results
}

// Failed returns the failing results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
