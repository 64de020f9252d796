package persist

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/arcadia-eng/designdb/internal/metamodel"
	"github.com/arcadia-eng/designdb/internal/model"
)

// Load reads and validates a container. Every snapshot is validated
// against meta, every frame index entry must resolve to a loaded snapshot,
// and the parent links must form a tree with exactly one root. Each defect
// surfaces its named error from this package (or a metamodel error for
// schema violations); only UnknownVersionError is fatal to the caller.
func Load(path string, meta *metamodel.Metamodel) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &PersistenceError{Op: "open", Path: path, Err: err}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &PersistenceError{Op: "open", Path: path, Err: err}
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return nil, &PersistenceError{Op: "open", Path: path, Err: err}
	}

	if err := checkCollections(db, path); err != nil {
		return nil, err
	}

	info, err := readInfo(db, path, meta)
	if err != nil {
		return nil, err
	}

	snapshots, pool, err := readSnapshots(db, path, meta)
	if err != nil {
		return nil, err
	}

	frames, err := readFrames(db, path, pool)
	if err != nil {
		return nil, err
	}

	if err := verifyTree(frames); err != nil {
		return nil, err
	}

	if info.Head == 0 {
		info.Head = newestFrame(frames)
	} else if !containsFrame(frames, info.Head) {
		return nil, &MalformedVersionGraphError{
			Frame:  info.Head,
			Reason: "recorded head frame is not in the frame collection",
		}
	}

	return &Document{Info: info, Snapshots: snapshots, Frames: frames}, nil
}

// checkCollections verifies the required tables exist, so that their
// absence surfaces the specific error it denotes rather than a failed
// query.
func checkCollections(db *sql.DB, path string) error {
	present := make(map[string]bool)
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return &PersistenceError{Op: "read", Path: path, Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return &PersistenceError{Op: "read", Path: path, Err: err}
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return &PersistenceError{Op: "read", Path: path, Err: err}
	}

	if !present["info"] {
		return &MissingInfoRecordError{Path: path}
	}
	if !present["snapshots"] {
		return &MissingSnapshotsCollectionError{Path: path}
	}
	if !present["frames"] || !present["frame_objects"] {
		return &MissingFramesCollectionError{Path: path}
	}
	return nil
}

func readInfo(db *sql.DB, path string, meta *metamodel.Metamodel) (Info, error) {
	values := make(map[string]string)
	rows, err := db.Query(`SELECT key, value FROM info`)
	if err != nil {
		return Info{}, &PersistenceError{Op: "read", Path: path, Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Info{}, &PersistenceError{Op: "read", Path: path, Err: err}
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return Info{}, &PersistenceError{Op: "read", Path: path, Err: err}
	}

	version, ok := values[infoKeyFormatVersion]
	if !ok || version != FormatVersion {
		return Info{}, &UnknownVersionError{Version: version}
	}
	if name := values[infoKeyMetamodel]; name != meta.Name() {
		return Info{}, &UnknownVersionError{
			Version:   version,
			Metamodel: name,
			Expected:  meta.Name(),
		}
	}

	info := Info{
		FormatVersion: version,
		DesignID:      values[infoKeyDesignID],
		MetamodelName: values[infoKeyMetamodel],
	}
	if headStr, ok := values[infoKeyHeadFrame]; ok {
		head, err := model.ParseFrameID(headStr)
		if err != nil {
			return Info{}, &MalformedVersionGraphError{
				Reason: fmt.Sprintf("unparseable head frame id %q", headStr),
			}
		}
		info.Head = head
	}
	return info, nil
}

func readSnapshots(db *sql.DB, path string, meta *metamodel.Metamodel) ([]*model.ObjectSnapshot, map[model.SnapshotID]bool, error) {
	rows, err := db.Query(`SELECT snapshot_id, object_id, type, components FROM snapshots`)
	if err != nil {
		return nil, nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}
	defer rows.Close()

	var snapshots []*model.ObjectSnapshot
	pool := make(map[model.SnapshotID]bool)
	for rows.Next() {
		var snapStr, objStr, typeName, componentsJSON string
		if err := rows.Scan(&snapStr, &objStr, &typeName, &componentsJSON); err != nil {
			return nil, nil, &PersistenceError{Op: "read", Path: path, Err: err}
		}
		snapID, err := model.ParseSnapshotID(snapStr)
		if err != nil {
			return nil, nil, &PersistenceError{Op: "read", Path: path,
				Err: fmt.Errorf("unparseable snapshot id %q", snapStr)}
		}
		objID, err := model.ParseObjectID(objStr)
		if err != nil {
			return nil, nil, &PersistenceError{Op: "read", Path: path,
				Err: fmt.Errorf("snapshot %s: unparseable object id %q", snapStr, objStr)}
		}
		parts, err := model.UnmarshalComponents([]byte(componentsJSON))
		if err != nil {
			return nil, nil, &metamodel.SchemaViolationError{
				TypeName: typeName,
				Object:   objID,
				Reason:   err.Error(),
			}
		}

		snap := model.NewObjectSnapshot(snapID, objID, typeName, parts)
		if err := meta.ValidateSnapshot(snap); err != nil {
			return nil, nil, err
		}
		snapshots = append(snapshots, snap)
		pool[snapID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}
	return snapshots, pool, nil
}

func readFrames(db *sql.DB, path string, pool map[model.SnapshotID]bool) ([]*model.Frame, error) {
	type frameRow struct {
		id     model.FrameID
		parent model.FrameID
		seq    uint64
	}

	rows, err := db.Query(`SELECT frame_id, parent_frame_id, seq FROM frames`)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}
	var frameRows []frameRow
	for rows.Next() {
		var idStr string
		var parentStr sql.NullString
		var seq int64
		if err := rows.Scan(&idStr, &parentStr, &seq); err != nil {
			rows.Close()
			return nil, &PersistenceError{Op: "read", Path: path, Err: err}
		}
		id, err := model.ParseFrameID(idStr)
		if err != nil {
			rows.Close()
			return nil, &PersistenceError{Op: "read", Path: path,
				Err: fmt.Errorf("unparseable frame id %q", idStr)}
		}
		row := frameRow{id: id, seq: uint64(seq)}
		if parentStr.Valid {
			parent, err := model.ParseFrameID(parentStr.String)
			if err != nil {
				rows.Close()
				return nil, &MalformedVersionGraphError{
					Frame:  id,
					Reason: fmt.Sprintf("unparseable parent frame id %q", parentStr.String),
				}
			}
			row.parent = parent
		}
		frameRows = append(frameRows, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}
	rows.Close()

	indexes := make(map[model.FrameID]map[model.ObjectID]model.SnapshotID, len(frameRows))
	for _, row := range frameRows {
		indexes[row.id] = make(map[model.ObjectID]model.SnapshotID)
	}

	objRows, err := db.Query(`SELECT frame_id, object_id, snapshot_id FROM frame_objects`)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}
	defer objRows.Close()
	for objRows.Next() {
		var frameStr, objStr, snapStr string
		if err := objRows.Scan(&frameStr, &objStr, &snapStr); err != nil {
			return nil, &PersistenceError{Op: "read", Path: path, Err: err}
		}
		frameID, err := model.ParseFrameID(frameStr)
		if err != nil {
			return nil, &PersistenceError{Op: "read", Path: path,
				Err: fmt.Errorf("unparseable frame id %q", frameStr)}
		}
		index, ok := indexes[frameID]
		if !ok {
			return nil, &MalformedVersionGraphError{
				Frame:  frameID,
				Reason: "frame index entry for a frame not in the frame collection",
			}
		}
		objID, err := model.ParseObjectID(objStr)
		if err != nil {
			return nil, &PersistenceError{Op: "read", Path: path,
				Err: fmt.Errorf("frame %s: unparseable object id %q", frameStr, objStr)}
		}
		snapID, err := model.ParseSnapshotID(snapStr)
		if err != nil {
			return nil, &PersistenceError{Op: "read", Path: path,
				Err: fmt.Errorf("frame %s: unparseable snapshot id %q", frameStr, snapStr)}
		}
		if !pool[snapID] {
			return nil, &DanglingSnapshotReferenceError{
				Frame:    frameID,
				Object:   objID,
				Snapshot: snapID,
			}
		}
		index[objID] = snapID
	}
	if err := objRows.Err(); err != nil {
		return nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}

	frames := make([]*model.Frame, 0, len(frameRows))
	for _, row := range frameRows {
		frames = append(frames, model.NewFrame(row.id, row.parent, row.seq, indexes[row.id]))
	}
	return frames, nil
}

// verifyTree checks that parent links form a tree with exactly one root:
// every parent resolves, there are no cycles, and exactly one frame has no
// parent.
func verifyTree(frames []*model.Frame) error {
	if len(frames) == 0 {
		return &MalformedVersionGraphError{Reason: "frame collection is empty"}
	}

	byID := make(map[model.FrameID]*model.Frame, len(frames))
	for _, f := range frames {
		if _, dup := byID[f.ID()]; dup {
			return &MalformedVersionGraphError{Frame: f.ID(), Reason: "duplicate frame id"}
		}
		byID[f.ID()] = f
	}

	var roots []model.FrameID
	for _, f := range frames {
		parent, ok := f.Parent()
		if !ok {
			roots = append(roots, f.ID())
			continue
		}
		if _, ok := byID[parent]; !ok {
			return &MalformedVersionGraphError{
				Frame:  f.ID(),
				Reason: fmt.Sprintf("parent frame %s does not exist", parent),
			}
		}
	}
	switch {
	case len(roots) == 0:
		return &MalformedVersionGraphError{Reason: "no root frame (parent links form a cycle)"}
	case len(roots) > 1:
		return &MalformedVersionGraphError{
			Frame:  roots[1],
			Reason: fmt.Sprintf("more than one root frame (%d found)", len(roots)),
		}
	}

	// Walk each frame's parent chain; exceeding the frame count means a
	// cycle that the root check above could not see.
	for _, f := range frames {
		steps := 0
		cur := f
		for {
			parent, ok := cur.Parent()
			if !ok {
				break
			}
			steps++
			if steps > len(frames) {
				return &MalformedVersionGraphError{
					Frame:  f.ID(),
					Reason: "parent chain does not reach the root (cycle)",
				}
			}
			cur = byID[parent]
		}
	}
	return nil
}

func newestFrame(frames []*model.Frame) model.FrameID {
	var newest *model.Frame
	for _, f := range frames {
		if newest == nil || f.Seq() > newest.Seq() {
			newest = f
		}
	}
	return newest.ID()
}

func containsFrame(frames []*model.Frame, id model.FrameID) bool {
	for _, f := range frames {
		if f.ID() == id {
			return true
		}
	}
	return false
}
