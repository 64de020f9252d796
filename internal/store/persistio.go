package store

import (
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arcadia-eng/designdb/internal/metamodel"
	"github.com/arcadia-eng/designdb/internal/model"
	"github.com/arcadia-eng/designdb/internal/persist"
)

// Save writes the full store (header, snapshot pool and frame tree) to a
// durable container at path. The write observes a consistent view of the
// tree as of the call and is atomic from the caller's perspective: either
// the whole new file becomes visible or the previous one remains.
func (s *Store) Save(path string) error {
	doc := s.document()
	if err := persist.Save(path, doc); err != nil {
		s.log.Error("save failed", zap.String("path", path), zap.Error(err))
		return err
	}
	s.log.Info("store saved",
		zap.String("path", path),
		zap.Int("snapshots", len(doc.Snapshots)),
		zap.Int("frames", len(doc.Frames)),
	)
	return nil
}

// document assembles the persisted shape of the store under the read lock.
func (s *Store) document() *persist.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots := make([]*model.ObjectSnapshot, 0, len(s.pool))
	for _, snap := range s.pool {
		snapshots = append(snapshots, snap)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].SnapshotID() < snapshots[j].SnapshotID()
	})

	frames := make([]*model.Frame, 0, len(s.frames))
	for _, frame := range s.frames {
		frames = append(frames, frame)
	}
	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Seq() < frames[j].Seq()
	})

	return &persist.Document{
		Info: persist.Info{
			FormatVersion: persist.FormatVersion,
			DesignID:      s.designID.String(),
			MetamodelName: s.meta.Name(),
			Head:          s.head,
		},
		Snapshots: snapshots,
		Frames:    frames,
	}
}

// Open loads a store from a container at path, validating it against meta.
// The head is restored from the header, falling back to the most recently
// written frame. On failure no store is returned and nothing is retained.
func Open(path string, meta *metamodel.Metamodel, opts Options) (*Store, error) {
	doc, err := persist.Load(path, meta)
	if err != nil {
		return nil, err
	}

	s := &Store{
		meta:        meta,
		log:         opts.logger(),
		opts:        opts,
		objectIDs:   model.NewIDGenerator(1),
		snapshotIDs: model.NewIDGenerator(1),
		frameIDs:    model.NewIDGenerator(1),
		pool:        make(map[model.SnapshotID]*model.ObjectSnapshot, len(doc.Snapshots)),
		frames:      make(map[model.FrameID]*model.Frame, len(doc.Frames)),
		children:    make(map[model.FrameID][]model.FrameID),
		redoTarget:  make(map[model.FrameID]model.FrameID),
	}

	if id, err := uuid.Parse(doc.Info.DesignID); err == nil {
		s.designID = id
	} else {
		s.designID = uuid.New()
	}

	for _, snap := range doc.Snapshots {
		s.pool[snap.SnapshotID()] = snap
		s.snapshotIDs.MarkUsed(uint64(snap.SnapshotID()))
		s.objectIDs.MarkUsed(uint64(snap.ObjectID()))
	}

	for _, frame := range doc.Frames {
		s.frames[frame.ID()] = frame
		s.frameIDs.MarkUsed(uint64(frame.ID()))
		if frame.Seq() > s.frameSeq {
			s.frameSeq = frame.Seq()
		}
		if parent, ok := frame.Parent(); ok {
			s.children[parent] = append(s.children[parent], frame.ID())
		} else {
			s.root = frame.ID()
		}
	}
	// Stable child order: by commit sequence.
	for id := range s.children {
		kids := s.children[id]
		sort.Slice(kids, func(i, j int) bool {
			return s.frames[kids[i]].Seq() < s.frames[kids[j]].Seq()
		})
	}

	s.head = doc.Info.Head

	s.log.Info("store opened",
		zap.String("path", path),
		zap.String("design_id", s.designID.String()),
		zap.Int("snapshots", len(doc.Snapshots)),
		zap.Int("frames", len(doc.Frames)),
		zap.String("head", s.head.String()),
	)
	return s, nil
}
