// Package preflight provides readiness checks for the filesystem paths and
// services a feed run depends on.
//
// These checks run in two contexts:
//   - `edgarfeed run` calls RunAll before the first download. If any check
//     fails, the run stops before touching the archive host.
//   - `edgarfeed config show` prints the individual results.
//
// Checks for optional outputs are skipped when the output is disabled.
package preflight
