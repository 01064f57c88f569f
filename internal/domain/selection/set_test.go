package selection

import (
	"reflect"
	"testing"

	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
)

func TestToggleTwiceRestoresOriginalState(t *testing.T) {
	s := New()
	s.Select([]string{"a", "b"})

	s.Toggle("c")
	if !s.IsSelected("c") || s.Count() != 3 {
		t.Fatalf("after first toggle: selected=%v count=%d", s.IsSelected("c"), s.Count())
	}

	s.Toggle("c")
	if s.IsSelected("c") {
		t.Error("c still selected after second toggle")
	}
	if s.Count() != 2 {
		t.Errorf("count = %d, want original 2", s.Count())
	}
}

func TestSelectAllThenRemove(t *testing.T) {
	s := New()
	tracks := []catalog.Track{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	s.SelectAll(tracks)
	s.Remove([]string{"a"})

	if got := s.IDs(); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("ids = %v, want [b c]", got)
	}
}

func TestAddSkipsDuplicates(t *testing.T) {
	s := New()
	s.Select([]string{"a", "b"})
	s.Add([]string{"b", "c", "c"})

	if got := s.IDs(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("ids = %v, want [a b c]", got)
	}
}

func TestBulkModeDerivedFromMembership(t *testing.T) {
	s := New()
	if s.BulkMode() {
		t.Error("empty set should not be in bulk mode")
	}

	s.Toggle("x")
	if !s.BulkMode() {
		t.Error("non-empty set should be in bulk mode")
	}

	s.Clear()
	if s.BulkMode() {
		t.Error("cleared set should leave bulk mode")
	}
}

func TestOperationsAreTotalOverEmptyInput(t *testing.T) {
	s := New()
	s.Add(nil)
	s.Remove(nil)
	s.Select(nil)
	s.SelectAll(nil)
	s.Clear()

	if s.Count() != 0 {
		t.Errorf("count = %d, want 0", s.Count())
	}
}

func TestRemoveIgnoresUnknownIDs(t *testing.T) {
	s := New()
	s.Select([]string{"a"})
	s.Remove([]string{"zz", "a", "yy"})

	if s.Count() != 0 {
		t.Errorf("count = %d, want 0", s.Count())
	}
}

func TestSubscriberSeesSnapshot(t *testing.T) {
	s := New()
	var last Snapshot
	s.Subscribe(func(snap Snapshot) { last = snap })

	s.Select([]string{"a", "b"})

	if !last.BulkMode || last.Count != 2 {
		t.Errorf("snapshot = %+v", last)
	}

	// Snapshot ids are a copy; mutating them must not affect the set.
	last.IDs[0] = "mutated"
	if s.IDs()[0] != "a" {
		t.Error("snapshot leak: external mutation reached the set")
	}
}
