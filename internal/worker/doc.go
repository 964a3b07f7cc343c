// Package worker runs submission indexing jobs in isolated workers.
//
// A worker is either a child process (`edgarfeed worker`) speaking CBOR
// messages over stdin/stdout, or an in-process goroutine used for tests and
// single-process runs. Both report through the same Worker interface so the
// dispatcher cannot tell them apart.
package worker
