// Package disseminate rebuilds dissemination files from stored filings.
//
// A Builder loads the structured record of one accession, fetches every
// document body from the blob store, and renders the full SGML file through
// the same codec ingestion uses. Binary documents are re-encoded with the
// EDGAR UUENCODE variant so the output matches the published bytes.
package disseminate
