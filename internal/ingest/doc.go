// Package ingest indexes one submission file: it parses the file, writes
// the optional per-submission outputs, uploads document payloads to the
// blob store and upserts the structured filing. Both the child worker
// process and the in-process worker path run the same Ingestor.
package ingest
