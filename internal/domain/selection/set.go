// Package selection tracks which catalog items are marked for bulk
// operations, independent of the active page or filters.
package selection

import (
	"sync"

	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
)

// Set holds the selected track identifiers in selection order. Entries hold
// no ownership over tracks; stale ids are tolerated and simply ignored by
// consumers. Every operation is total: arbitrary id lists, including empty
// ones, never fail.
type Set struct {
	mu          sync.Mutex
	ids         []string
	subscribers []func(Snapshot)
}

// Snapshot is the view handed to subscribers and the transport.
type Snapshot struct {
	IDs      []string `json:"selectedTracks"`
	Count    int      `json:"selectedCount"`
	BulkMode bool     `json:"isInBulkMode"`
}

// New creates an empty selection set.
func New() *Set {
	return &Set{}
}

// Subscribe registers a callback invoked after every change.
func (s *Set) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Snapshot returns the current selection. Bulk mode is derived: true iff
// the set is non-empty.
func (s *Set) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Set) snapshotLocked() Snapshot {
	ids := make([]string, len(s.ids))
	copy(ids, s.ids)
	return Snapshot{
		IDs:      ids,
		Count:    len(ids),
		BulkMode: len(ids) > 0,
	}
}

func (s *Set) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Set) indexOf(id string) int {
	for i, existing := range s.ids {
		if existing == id {
			return i
		}
	}
	return -1
}

// Toggle adds id if absent, removes it if present.
func (s *Set) Toggle(id string) {
	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.ids = append(s.ids[:i], s.ids[i+1:]...)
	} else {
		s.ids = append(s.ids, id)
	}
	s.mu.Unlock()

	s.notify()
}

// IsSelected reports membership.
func (s *Set) IsSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) >= 0
}

// Count returns the number of selected ids.
func (s *Set) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// BulkMode reports whether any item is selected.
func (s *Set) BulkMode() bool {
	return s.Count() > 0
}

// IDs returns the selected ids in selection order.
func (s *Set) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.ids))
	copy(ids, s.ids)
	return ids
}

// SelectAll replaces the selection with exactly the given tracks' ids.
func (s *Set) SelectAll(tracks []catalog.Track) {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	s.Select(ids)
}

// Select replaces the selection wholesale.
func (s *Set) Select(ids []string) {
	replacement := make([]string, len(ids))
	copy(replacement, ids)

	s.mu.Lock()
	s.ids = replacement
	s.mu.Unlock()

	s.notify()
}

// Add unions the given ids into the selection, skipping duplicates.
func (s *Set) Add(ids []string) {
	s.mu.Lock()
	for _, id := range ids {
		if s.indexOf(id) < 0 {
			s.ids = append(s.ids, id)
		}
	}
	s.mu.Unlock()

	s.notify()
}

// Remove drops the given ids from the selection. Unknown ids are ignored.
func (s *Set) Remove(ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	kept := s.ids[:0]
	for _, id := range s.ids {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	s.ids = kept
	s.mu.Unlock()

	s.notify()
}

// Clear empties the selection.
func (s *Set) Clear() {
	s.mu.Lock()
	s.ids = nil
	s.mu.Unlock()

	s.notify()
}
