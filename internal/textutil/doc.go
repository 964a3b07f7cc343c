// Package textutil holds small string helpers shared by the output writers.
//
// SanitizeFileName turns the FILENAME a filer declared into a single safe
// path segment, so extracted documents and blob keys can never climb out of
// the filing's directory or prefix.
package textutil
