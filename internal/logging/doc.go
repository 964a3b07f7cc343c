// Package logging assembles structured slog loggers and formatting helpers used
// across edgarfeed.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with the feed day, file, accession number and worker slot it is
// handling. Per-component level overrides let a noisy component (the
// dispatcher, say) run at debug while the rest stays at info.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape and routing as the rest of the system.
package logging
