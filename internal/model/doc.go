// Package model defines the identity and value types shared by every layer
// of the design store: object, snapshot and frame identifiers, the closed
// set of attribute value variants, immutable component bundles, object
// snapshots, and version frames.
//
// Everything in this package is either an immutable value or has explicit
// Clone semantics. Nothing here performs I/O or validation against a
// metamodel; that belongs to the metamodel and store packages.
package model
