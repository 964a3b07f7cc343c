// Package services defines the error taxonomy and context annotations shared
// by every pipeline component.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper, so callers can classify a
//     failure (transport, format, cross-check, timeout, store) with errors.Is
//     no matter how deeply it was wrapped.
//   - Context helpers that stamp the feed day, submission file, accession
//     number, worker slot and correlation identifiers for logging.
//
// Use these helpers in new components so retries and log fields stay uniform
// across the downloader, the dispatcher and the workers.
package services
