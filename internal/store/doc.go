// Package store implements the versioned graph object store: an in-memory
// snapshot pool and frame tree with a transactional edit protocol, undo and
// redo over the version graph, read-only domain views bound to any frame,
// retention-based garbage collection, and durable persistence through the
// persist package.
//
// The store assumes a single logical editor session: one working set may be
// open at a time. Committed frames and snapshots are immutable, so any
// number of DomainViews over any frames may be read concurrently without
// coordination.
package store
