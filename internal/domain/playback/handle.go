// Package playback manages a single audio playback session, mapping
// transport intents onto a native media handle's lifecycle.
package playback

import "context"

// HandleEvents are the callbacks a media handle fires while open. All are
// optional from the handle's perspective; the session wires every one.
type HandleEvents struct {
	// OnTimeUpdate reports the playback position in seconds.
	OnTimeUpdate func(seconds float64)

	// OnDurationKnown reports the total duration once metadata has loaded.
	// Fired at most once per handle.
	OnDurationKnown func(seconds float64)

	// OnPlay fires when playback actually starts or resumes.
	OnPlay func()

	// OnPause fires when playback pauses.
	OnPause func()

	// OnEnded fires when the track plays to completion.
	OnEnded func()

	// OnError fires on a mid-session fault (decode or network).
	OnError func(err error)
}

// Handle is one open playable audio resource. A handle is exclusively owned
// by the session; Release must be safe to call more than once.
type Handle interface {
	// Play starts or resumes playback. It returns once playback has
	// started, or an error if the underlying play request is rejected.
	Play(ctx context.Context) error

	// Pause suspends playback without releasing the resource.
	Pause() error

	// Release tears the resource down. The handle fires no events after
	// Release returns.
	Release() error

	// SetPosition seeks to the given position in seconds.
	SetPosition(seconds float64) error

	// SetVolume sets the native volume as a fraction in [0,1]. The session
	// adapts its public 0-100 range to this.
	SetVolume(fraction float64) error
}

// Opener creates handles. Implementations: internal/infra/mpdaudio and
// internal/infra/localaudio.
type Opener interface {
	// Open prepares a handle for the audio resource at url with the given
	// event sinks attached. It does not start playback.
	Open(ctx context.Context, url string, events HandleEvents) (Handle, error)
}
