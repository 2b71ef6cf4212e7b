// Package operations runs an analysis as an ordered list of steps sharing
// one RunState: load, verify, build, select and plot.
//
// Steps execute sequentially. When one fails, the remaining steps are
// marked skipped and the run report is still written, so a failed run can
// be inspected through the report server like a completed one.
package operations
