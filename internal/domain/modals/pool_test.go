package modals

import (
	"testing"

	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
)

func TestOpenAndCloseDialog(t *testing.T) {
	p := NewPool()

	p.OpenDeleteTrack([]string{"a", "b"})
	if !p.IsOpen(KindDeleteTrack) {
		t.Fatal("delete dialog should be open")
	}

	active := p.Active()
	payload, ok := active.Payload.(DeleteTrackPayload)
	if !ok || len(payload.TrackIDs) != 2 {
		t.Errorf("payload = %+v", active.Payload)
	}

	if err := p.Close(KindDeleteTrack); err != nil {
		t.Fatal(err)
	}
	if p.Active() != nil {
		t.Error("dialog still open after close")
	}
}

func TestOpenReplacesPreviousDialog(t *testing.T) {
	p := NewPool()

	p.OpenDeleteTrack([]string{"a"})
	p.OpenUploadTrackFile("b")

	if p.IsOpen(KindDeleteTrack) {
		t.Error("previous dialog still open")
	}
	if !p.IsOpen(KindUploadTrackFile) {
		t.Error("new dialog not open")
	}
}

func TestCloseWrongKindFails(t *testing.T) {
	p := NewPool()
	p.OpenTrackForm(nil)

	if err := p.Close(KindDeleteTrack); err == nil {
		t.Error("closing a dialog that is not open must fail")
	}
	if err := p.Close(Kind("bogus")); err == nil {
		t.Error("unknown kind must fail")
	}
	if !p.IsOpen(KindTrackForm) {
		t.Error("failed close must not affect the open dialog")
	}
}

func TestTrackFormPayloadCopiesTrack(t *testing.T) {
	p := NewPool()
	track := catalog.Track{ID: "a", Title: "Original"}

	p.OpenTrackForm(&track)
	track.Title = "Mutated"

	payload := p.Active().Payload.(TrackFormPayload)
	if payload.Track.Title != "Original" {
		t.Error("payload aliases the caller's track")
	}
}

func TestSubscriberSeesOpenAndClose(t *testing.T) {
	p := NewPool()

	var states []*Active
	p.Subscribe(func(a *Active) { states = append(states, a) })

	p.OpenUploadTrackFile("x")
	p.CloseAll()
	p.CloseAll() // nothing open, no publish

	if len(states) != 2 {
		t.Fatalf("subscriber calls = %d, want 2", len(states))
	}
	if states[0] == nil || states[0].Kind != KindUploadTrackFile {
		t.Errorf("first state = %+v", states[0])
	}
	if states[1] != nil {
		t.Errorf("second state = %+v, want nil", states[1])
	}
}
