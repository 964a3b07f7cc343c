// Package tags holds the fixed classification tables for the EDGAR header
// dialect.
//
// The tables decide, by tag name alone, whether a tag is always modelled as a
// list (array tags) and whether a bare, data-less occurrence means boolean
// true (flag tags). Both directions of the SGML codec consult Classify so the
// decoder and encoder can never disagree about a tag's shape. The tables are
// exhaustive for the dialect: a repeated tag that is not listed here is a
// format error, never a guess.
package tags
