// Package workflow drives a feed run from calendar days to indexed filings.
//
// The Orchestrator walks a forward date cursor (weekdays only) and a retry
// queue that always takes priority over it. A fixed number of download slots
// fetch and unpack daily archives, each under its own timeout. Unpacked days
// are handed to the Indexer one at a time, so at most one directory is being
// indexed however many downloads are in flight. Failed downloads and days
// whose indexing error ratio is too high go back on the retry queue until the
// per-day cap is spent; then the day is abandoned and logged.
//
// Runtime bundles the process-wide collaborators (config, logger, store,
// blob store, throttle, metrics) built once per command.
package workflow
