// Package report holds the outcome of a validation run: the severity-ordered
// Status, the per-check Step and the Report that collects them.
//
// A Recorder is owned by one run. Observers and HTTP handlers read progress
// through Snapshot, which returns a copy.
package report
