// Package harness runs YAML-described edit scenarios against a design
// store and captures a deterministic trace of every operation plus the
// final head view. Traces are compared against golden files, which serve
// as the source of truth for store behavior across edits, undo/redo and
// persistence round-trips.
package harness
