// Package modals tracks which dialog the UI should present. The set of
// dialogs is a closed enumeration with typed payloads; an unknown kind is a
// programmer error, not user input.
package modals

import (
	"fmt"
	"sync"

	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
)

// Kind identifies a dialog.
type Kind string

const (
	KindDeleteTrack     Kind = "deleteTrack"
	KindTrackForm       Kind = "trackForm"
	KindUploadTrackFile Kind = "uploadTrackFile"
)

// Valid reports whether k is a known dialog kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDeleteTrack, KindTrackForm, KindUploadTrackFile:
		return true
	}
	return false
}

// DeleteTrackPayload opens the delete confirmation.
type DeleteTrackPayload struct {
	TrackIDs []string `json:"trackIds"`
}

// TrackFormPayload opens the create or edit form. A nil Track means create.
type TrackFormPayload struct {
	Track *catalog.Track `json:"track,omitempty"`
}

// UploadTrackFilePayload opens the audio upload dialog.
type UploadTrackFilePayload struct {
	TrackID string `json:"trackId"`
}

// Active describes the open dialog pushed to the UI.
type Active struct {
	Kind    Kind `json:"kind"`
	Payload any  `json:"payload"`
}

// Pool holds at most one open dialog.
type Pool struct {
	mu          sync.Mutex
	active      *Active
	subscribers []func(*Active)
}

// NewPool creates a pool with no open dialog.
func NewPool() *Pool {
	return &Pool{}
}

// Subscribe registers a callback invoked on every open and close. A nil
// argument means no dialog is open.
func (p *Pool) Subscribe(fn func(*Active)) {
	p.mu.Lock()
	p.subscribers = append(p.subscribers, fn)
	p.mu.Unlock()
}

// OpenDeleteTrack opens the delete confirmation for the given tracks.
func (p *Pool) OpenDeleteTrack(trackIDs []string) {
	ids := make([]string, len(trackIDs))
	copy(ids, trackIDs)
	p.open(Active{Kind: KindDeleteTrack, Payload: DeleteTrackPayload{TrackIDs: ids}})
}

// OpenTrackForm opens the track form, editing the given track or creating
// when track is nil.
func (p *Pool) OpenTrackForm(track *catalog.Track) {
	payload := TrackFormPayload{}
	if track != nil {
		trackCopy := *track
		payload.Track = &trackCopy
	}
	p.open(Active{Kind: KindTrackForm, Payload: payload})
}

// OpenUploadTrackFile opens the audio upload dialog for one track.
func (p *Pool) OpenUploadTrackFile(trackID string) {
	p.open(Active{Kind: KindUploadTrackFile, Payload: UploadTrackFilePayload{TrackID: trackID}})
}

// open replaces any open dialog. One dialog at a time.
func (p *Pool) open(a Active) {
	p.mu.Lock()
	p.active = &a
	p.mu.Unlock()

	p.publish()
}

// Close closes the dialog of the given kind. Closing a kind that is not open
// is an error: it signals a desynchronized client.
func (p *Pool) Close(kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown dialog kind %q", kind)
	}

	p.mu.Lock()
	if p.active == nil || p.active.Kind != kind {
		p.mu.Unlock()
		return fmt.Errorf("dialog %q is not open", kind)
	}
	p.active = nil
	p.mu.Unlock()

	p.publish()
	return nil
}

// CloseAll closes whatever dialog is open. Always succeeds.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	wasOpen := p.active != nil
	p.active = nil
	p.mu.Unlock()

	if wasOpen {
		p.publish()
	}
}

// IsOpen reports whether the given dialog kind is open.
func (p *Pool) IsOpen(kind Kind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil && p.active.Kind == kind
}

// Active returns the open dialog, or nil.
func (p *Pool) Active() *Active {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return nil
	}
	activeCopy := *p.active
	return &activeCopy
}

func (p *Pool) publish() {
	p.mu.Lock()
	active := p.active
	if active != nil {
		activeCopy := *active
		active = &activeCopy
	}
	subs := make([]func(*Active), len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(active)
	}
}
