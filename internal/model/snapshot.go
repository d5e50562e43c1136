package model

import (
	"sync/atomic"
	"time"
)

// Snapshot is one internally consistent set of samples plus graph histories.
// A snapshot is immutable once published; the collector replaces it wholesale.
type Snapshot struct {
	Version   uint64
	At        time.Time
	Samples   map[Field]Sample
	Histories map[Field]*History
}

func (s *Snapshot) Sample(f Field) (Sample, bool) {
	if s == nil {
		return Sample{}, false
	}
	sm, ok := s.Samples[f]
	return sm, ok
}

func (s *Snapshot) History(f Field) (*History, bool) {
	if s == nil {
		return nil, false
	}
	h, ok := s.Histories[f]
	return h, ok
}

// Store hands the latest snapshot from the collector to the renderer.
// Readers never block the writer and always observe a complete snapshot.
type Store struct {
	cur     atomic.Pointer[Snapshot]
	version atomic.Uint64
}

func NewStore() *Store { return &Store{} }

// Publish installs a new snapshot, stamping it with the next version.
func (st *Store) Publish(s *Snapshot) {
	s.Version = st.version.Add(1)
	st.cur.Store(s)
}

// Load returns the most recently published snapshot, or nil before the first
// publish.
func (st *Store) Load() *Snapshot {
	return st.cur.Load()
}
