// Package metrics holds the Prometheus collectors for feed downloads,
// worker dispatch and submission indexing.
//
// Collectors live on a private registry owned by a Metrics value so tests
// and multiple runs in one process never collide. All recording methods are
// safe on a nil *Metrics.
package metrics
