package persist

import (
	"errors"
	"fmt"

	"github.com/arcadia-eng/designdb/internal/model"
)

// PersistenceError reports an I/O or database failure while reading or
// writing the container: file not found, not creatable, rename failure.
type PersistenceError struct {
	Op   string // "open", "read", "write", "replace"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UnknownVersionError reports a persisted format that cannot be safely
// interpreted: an unrecognized format version, or a file written against a
// different metamodel. This is the one fatal error in the taxonomy; no
// partial interpretation of an unrecognized format exists.
type UnknownVersionError struct {
	Version string

	// Metamodel is set when the format version matched but the file was
	// written against a different metamodel.
	Metamodel string
	Expected  string
}

func (e *UnknownVersionError) Error() string {
	if e.Metamodel != "" {
		return fmt.Sprintf("file written for metamodel %q, store opened with %q", e.Metamodel, e.Expected)
	}
	return fmt.Sprintf("unknown format version %q (supported: %s)", e.Version, FormatVersion)
}

// IsUnknownVersion reports whether err is (or wraps) an UnknownVersionError.
func IsUnknownVersion(err error) bool {
	var uv *UnknownVersionError
	return errors.As(err, &uv)
}

// MissingInfoRecordError reports a container without the info header.
type MissingInfoRecordError struct {
	Path string
}

func (e *MissingInfoRecordError) Error() string {
	return fmt.Sprintf("%s: info record is missing", e.Path)
}

// MissingSnapshotsCollectionError reports a container without the snapshot
// collection.
type MissingSnapshotsCollectionError struct {
	Path string
}

func (e *MissingSnapshotsCollectionError) Error() string {
	return fmt.Sprintf("%s: snapshots collection is missing", e.Path)
}

// MissingFramesCollectionError reports a container without the frame
// collection.
type MissingFramesCollectionError struct {
	Path string
}

func (e *MissingFramesCollectionError) Error() string {
	return fmt.Sprintf("%s: frames collection is missing", e.Path)
}

// DanglingSnapshotReferenceError reports a frame index entry whose
// snapshot identity does not resolve in the snapshot collection (or, when
// raised by a view, in the in-memory pool).
type DanglingSnapshotReferenceError struct {
	Frame    model.FrameID
	Object   model.ObjectID
	Snapshot model.SnapshotID
}

func (e *DanglingSnapshotReferenceError) Error() string {
	return fmt.Sprintf("frame %s: object %s references snapshot %s, which does not exist",
		e.Frame, e.Object, e.Snapshot)
}

// MalformedVersionGraphError reports a frame collection whose parent links
// do not form a rooted tree: an unknown parent, a cycle, no root, or more
// than one root.
type MalformedVersionGraphError struct {
	Frame  model.FrameID // offending frame when one can be named, else 0
	Reason string
}

func (e *MalformedVersionGraphError) Error() string {
	if e.Frame != 0 {
		return fmt.Sprintf("malformed version graph: frame %s: %s", e.Frame, e.Reason)
	}
	return fmt.Sprintf("malformed version graph: %s", e.Reason)
}
