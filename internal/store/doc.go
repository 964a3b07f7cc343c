// Package store persists structured filings.
//
// Two backends share one schema and one set of statements: SQLite
// (modernc.org/sqlite, WAL mode, the default for a single host) and
// PostgreSQL through a pgx connection pool. Writes are idempotent upserts
// keyed by accession number; child rows that disappear on re-ingestion are
// removed so a second ingest of the same submission leaves identical state.
package store
