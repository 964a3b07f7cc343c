// Package edgar holds identifiers and fixed domain facts of the EDGAR feed:
// accession numbers, CIK padding, the feed calendar and archive URLs, the
// binary document extensions and the investment-company form list.
package edgar
