// Package blobstore stores document payloads and rebuilt dissemination
// files. Keys are slash-separated; each backend maps them onto its own
// namespace (a directory tree, an S3 bucket or a GCS bucket) under an
// optional prefix.
package blobstore
