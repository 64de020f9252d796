// Package persist reads and writes the durable container for a design
// store: a SQLite database holding an info header, a snapshot collection
// and a frame collection.
//
// Every record is self-contained and keyed by a stable identity, so a
// damaged or truncated collection degrades to missing entries rather than
// an unparseable blob. The loader validates everything it reads (format
// version, snapshot structure against the metamodel, snapshot references
// and the shape of the version graph) and surfaces one named error per
// structural defect. Saving writes a complete fresh database next to the
// target and renames it into place, so a crash mid-write leaves the old
// file intact.
package persist
