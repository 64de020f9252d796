package store

import (
	"sort"

	"go.uber.org/zap"

	"github.com/arcadia-eng/designdb/internal/model"
)

// Retention configures the garbage collection pass.
type Retention struct {
	// KeepFrames is the minimum number of most recently committed frames
	// to retain regardless of position in the tree. Zero keeps every
	// frame, making GC a no-op.
	KeepFrames int
}

// GCStats summarizes one garbage collection pass.
type GCStats struct {
	FramesRemoved    int
	SnapshotsRemoved int
}

// GC prunes the version graph per the store's retention policy and sweeps
// snapshots no longer referenced by any retained frame.
//
// Retained, always: the head, every ancestor of a retained frame (so the
// tree stays rooted), every recorded redo target, and the KeepFrames most
// recently committed frames. Everything else, typically old discarded
// branches, is removed together with its now-unreachable snapshots.
// Those frames stop being reachable by Goto.
//
// GC requires the working set to be closed and never touches the head.
func (s *Store) GC() (GCStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.edit != nil {
		return GCStats{}, &ConcurrentEditError{Op: "gc"}
	}
	if s.opts.Retention.KeepFrames <= 0 || len(s.frames) <= s.opts.Retention.KeepFrames {
		return GCStats{}, nil
	}

	retained := make(map[model.FrameID]bool)
	mark := func(id model.FrameID) {
		for {
			if retained[id] {
				return
			}
			retained[id] = true
			parent, ok := s.frames[id].Parent()
			if !ok {
				return
			}
			id = parent
		}
	}

	mark(s.head)
	for _, target := range s.redoTarget {
		mark(target)
	}

	byRecency := make([]model.FrameID, 0, len(s.frames))
	for id := range s.frames {
		byRecency = append(byRecency, id)
	}
	sort.Slice(byRecency, func(i, j int) bool {
		return s.frames[byRecency[i]].Seq() > s.frames[byRecency[j]].Seq()
	})
	for i := 0; i < s.opts.Retention.KeepFrames && i < len(byRecency); i++ {
		mark(byRecency[i])
	}

	stats := GCStats{}
	for id := range s.frames {
		if retained[id] {
			continue
		}
		delete(s.frames, id)
		delete(s.redoTarget, id)
		stats.FramesRemoved++
	}
	if stats.FramesRemoved == 0 {
		return stats, nil
	}

	// Rebuild child lists over the surviving frames.
	s.children = make(map[model.FrameID][]model.FrameID)
	for id, frame := range s.frames {
		if parent, ok := frame.Parent(); ok {
			s.children[parent] = append(s.children[parent], id)
		}
	}
	for id := range s.children {
		kids := s.children[id]
		sort.Slice(kids, func(i, j int) bool {
			return s.frames[kids[i]].Seq() < s.frames[kids[j]].Seq()
		})
	}

	// Sweep snapshots unreferenced by any surviving frame.
	referenced := make(map[model.SnapshotID]bool)
	for _, frame := range s.frames {
		for _, obj := range frame.Objects() {
			snapID, _ := frame.Snapshot(obj)
			referenced[snapID] = true
		}
	}
	for id := range s.pool {
		if !referenced[id] {
			delete(s.pool, id)
			stats.SnapshotsRemoved++
		}
	}

	s.log.Info("gc pass",
		zap.Int("frames_removed", stats.FramesRemoved),
		zap.Int("snapshots_removed", stats.SnapshotsRemoved),
		zap.Int("frames_retained", len(s.frames)),
	)
	return stats, nil
}
