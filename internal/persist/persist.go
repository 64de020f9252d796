package persist

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arcadia-eng/designdb/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// FormatVersion is the one container format this build reads and writes.
// Loading any other value fails with UnknownVersionError; there is no
// forward or backward compatibility shimming.
const FormatVersion = "1"

// Info header keys.
const (
	infoKeyFormatVersion = "format_version"
	infoKeyDesignID      = "design_id"
	infoKeyMetamodel     = "metamodel"
	infoKeyHeadFrame     = "head_frame_id"
)

// Info is the container header.
type Info struct {
	FormatVersion string
	DesignID      string
	MetamodelName string

	// Head is the frame the session was anchored to when the file was
	// written. Zero means "not recorded"; the loader then picks the most
	// recently written frame.
	Head model.FrameID
}

// Document is the complete logical content of a container: the header, the
// snapshot pool and the frame tree.
type Document struct {
	Info      Info
	Snapshots []*model.ObjectSnapshot
	Frames    []*model.Frame
}

// Save writes a complete container for doc. The write is atomic from the
// caller's perspective: a fresh database is built at path+".tmp" and
// renamed over the target only after it is fully written and closed.
func Save(path string, doc *Document) error {
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return &PersistenceError{Op: "write", Path: tmp, Err: err}
	}

	if err := writeContainer(tmp, doc); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Op: "replace", Path: path, Err: err}
	}
	return nil
}

func writeContainer(path string, doc *Document) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return &PersistenceError{Op: "open", Path: path, Err: err}
	}
	defer db.Close()

	// Single writer; the container is written in one transaction.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		return &PersistenceError{Op: "write", Path: path, Err: fmt.Errorf("create schema: %w", err)}
	}

	tx, err := db.Begin()
	if err != nil {
		return &PersistenceError{Op: "write", Path: path, Err: err}
	}
	defer tx.Rollback()

	if err := writeInfo(tx, doc.Info); err != nil {
		return &PersistenceError{Op: "write", Path: path, Err: err}
	}
	for _, snap := range doc.Snapshots {
		if err := writeSnapshot(tx, snap); err != nil {
			return &PersistenceError{Op: "write", Path: path, Err: err}
		}
	}
	for _, frame := range doc.Frames {
		if err := writeFrame(tx, frame); err != nil {
			return &PersistenceError{Op: "write", Path: path, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func writeInfo(tx *sql.Tx, info Info) error {
	pairs := map[string]string{
		infoKeyFormatVersion: info.FormatVersion,
		infoKeyDesignID:      info.DesignID,
		infoKeyMetamodel:     info.MetamodelName,
	}
	if info.Head != 0 {
		pairs[infoKeyHeadFrame] = info.Head.String()
	}
	for key, value := range pairs {
		if _, err := tx.Exec(`INSERT INTO info (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("info %q: %w", key, err)
		}
	}
	return nil
}

func writeSnapshot(tx *sql.Tx, snap *model.ObjectSnapshot) error {
	parts := make(map[model.ComponentKind]model.ComponentData, len(snap.ComponentKinds()))
	for _, kind := range snap.ComponentKinds() {
		data, _ := snap.Component(kind)
		parts[kind] = data
	}
	componentsJSON, err := model.MarshalComponentsCanonical(parts)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", snap.SnapshotID(), err)
	}

	_, err = tx.Exec(`
		INSERT INTO snapshots (snapshot_id, object_id, type, components)
		VALUES (?, ?, ?, ?)
	`,
		snap.SnapshotID().String(),
		snap.ObjectID().String(),
		snap.TypeName(),
		string(componentsJSON),
	)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", snap.SnapshotID(), err)
	}
	return nil
}

func writeFrame(tx *sql.Tx, frame *model.Frame) error {
	var parent any
	if p, ok := frame.Parent(); ok {
		parent = p.String()
	}
	_, err := tx.Exec(`
		INSERT INTO frames (frame_id, parent_frame_id, seq)
		VALUES (?, ?, ?)
	`,
		frame.ID().String(), parent, int64(frame.Seq()),
	)
	if err != nil {
		return fmt.Errorf("frame %s: %w", frame.ID(), err)
	}

	for _, obj := range frame.Objects() {
		snapID, _ := frame.Snapshot(obj)
		_, err := tx.Exec(`
			INSERT INTO frame_objects (frame_id, object_id, snapshot_id)
			VALUES (?, ?, ?)
		`,
			frame.ID().String(), obj.String(), snapID.String(),
		)
		if err != nil {
			return fmt.Errorf("frame %s object %s: %w", frame.ID(), obj, err)
		}
	}
	return nil
}
