package playback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
)

// ErrNoAudioFile is returned when PlayTrack is asked to play a track
// without an audio file. Raised before any handle is opened or state
// mutated.
var ErrNoAudioFile = errors.New("track has no audio file")

// errPlaybackFailed is the generic fault reported to the error observer for
// mid-session playback errors; the native detail is only logged.
var errPlaybackFailed = errors.New("audio playback failed")

// state is the session state tag.
type state int

const (
	stateIdle state = iota
	stateLoading
	statePlaying
	statePaused
)

func (s state) String() string {
	switch s {
	case stateLoading:
		return "loading"
	case statePlaying:
		return "playing"
	case statePaused:
		return "paused"
	default:
		return "idle"
	}
}

// Observers are optional fire-and-forget callbacks for session
// transitions. No return value is consumed.
type Observers struct {
	OnTrackStart   func(track catalog.Track)
	OnTrackEnd     func(track catalog.Track)
	OnTrackPause   func(track catalog.Track)
	OnTrackResume  func(track catalog.Track)
	OnTimeUpdate   func(current, duration float64)
	OnVolumeChange func(volume int)
	OnError        func(err error)
}

// Status is a snapshot of the session for the presentation layer.
type Status struct {
	Track       *catalog.Track `json:"currentTrack"`
	CurrentTime float64        `json:"currentTime"`
	Duration    float64        `json:"duration"`
	Volume      int            `json:"volume"`
	Loading     bool           `json:"loading"`
	IsPlaying   bool           `json:"isPlaying"`
	IsPaused    bool           `json:"isPaused"`
}

// Session manages at most one playing or paused audio session at a time.
// Switching tracks tears the previous handle down before the next one
// opens; no two handles are ever simultaneously active.
type Session struct {
	opener    Opener
	baseURL   string
	observers Observers

	mu       sync.Mutex
	state    state
	track    *catalog.Track
	handle   Handle
	gen      uint64 // incremented per open; stale handle events are dropped
	current  float64
	duration float64
	volume   int
}

// NewSession creates an idle session. baseURL is the catalog API base the
// audio file reference is resolved against.
func NewSession(opener Opener, baseURL string, observers Observers) *Session {
	return &Session{
		opener:    opener,
		baseURL:   baseURL,
		observers: observers,
		volume:    100,
	}
}

// BindObservers replaces the observer set. Call before the first PlayTrack;
// observers are read without synchronization afterwards.
func (s *Session) BindObservers(observers Observers) {
	s.observers = observers
}

// mediaURL derives the playable URL for a track's audio file reference.
func (s *Session) mediaURL(track catalog.Track) string {
	return strings.TrimRight(s.baseURL, "/") + "/api/files/" + track.AudioFile
}

// PlayTrack starts a new session for the given track. Any session already
// open — for the same track or another — is fully torn down first. A track
// without an audio file is rejected before any handle is opened. A rejected
// play request tears the session down and returns the error.
func (s *Session) PlayTrack(ctx context.Context, track catalog.Track) error {
	if !track.Playable() {
		return fmt.Errorf("%w: %s", ErrNoAudioFile, track.ID)
	}

	s.mu.Lock()
	old := s.teardownLocked()
	trackCopy := track
	s.track = &trackCopy
	s.state = stateLoading
	gen := s.gen
	events := s.eventsFor(gen)
	url := s.mediaURL(track)
	s.mu.Unlock()

	releaseHandle(old)

	log.Info().Str("track", track.ID).Str("title", track.Title).Msg("Play track")

	handle, err := s.opener.Open(ctx, url, events)
	if err != nil {
		s.stopIfGen(gen)
		return fmt.Errorf("failed to open audio: %w", err)
	}

	s.mu.Lock()
	if s.gen != gen {
		// Superseded while opening; the newer session owns playback now.
		s.mu.Unlock()
		handle.Release()
		return nil
	}
	s.handle = handle
	volume := s.volume
	s.mu.Unlock()

	if err := handle.SetVolume(float64(volume) / 100); err != nil {
		log.Debug().Err(err).Msg("Failed to apply volume to new handle")
	}

	if err := handle.Play(ctx); err != nil {
		s.stopIfGen(gen)
		return fmt.Errorf("failed to start playback: %w", err)
	}

	s.markPlaying(gen)
	return nil
}

// ResumeTrack resumes a paused session. A no-op in any other state,
// including Idle: calling it at the wrong time is never an error.
func (s *Session) ResumeTrack(ctx context.Context) error {
	s.mu.Lock()
	if s.state != statePaused || s.handle == nil {
		s.mu.Unlock()
		return nil
	}
	handle := s.handle
	gen := s.gen
	track := *s.track
	s.mu.Unlock()

	if err := handle.Play(ctx); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}

	s.markPlaying(gen)
	if s.observers.OnTrackResume != nil {
		s.observers.OnTrackResume(track)
	}
	return nil
}

// PauseTrack pauses a playing session. A no-op in any other state.
func (s *Session) PauseTrack() {
	s.mu.Lock()
	if s.state != statePlaying || s.handle == nil {
		s.mu.Unlock()
		return
	}
	handle := s.handle
	s.mu.Unlock()

	if err := handle.Pause(); err != nil {
		log.Error().Err(err).Msg("Pause failed")
		return
	}
	s.markPaused()
}

// TogglePlayPause pauses when playing and resumes when paused.
func (s *Session) TogglePlayPause(ctx context.Context) error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()

	switch st {
	case statePlaying:
		s.PauseTrack()
		return nil
	case statePaused:
		return s.ResumeTrack(ctx)
	default:
		return nil
	}
}

// StopTrack ends the session from any state: the handle is released, the
// track reference cleared, elapsed and duration reset. Idempotent.
func (s *Session) StopTrack() {
	s.stop()
}

func (s *Session) stop() {
	s.mu.Lock()
	old := s.teardownLocked()
	s.mu.Unlock()

	releaseHandle(old)
}

// stopIfGen tears the session down only while it still belongs to the given
// generation. Failure paths of a play request use this: a superseded request
// failing late must not clobber the session that replaced it.
func (s *Session) stopIfGen(gen uint64) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	old := s.teardownLocked()
	s.mu.Unlock()

	releaseHandle(old)
}

// teardownLocked detaches the open handle and resets session fields, and
// returns the detached handle. The caller must release it after dropping
// s.mu: a handle may deliver events synchronously and re-enter the session.
// Volume is sticky across sessions. Must hold s.mu.
func (s *Session) teardownLocked() Handle {
	old := s.handle
	s.handle = nil
	s.gen++
	s.track = nil
	s.current = 0
	s.duration = 0
	s.state = stateIdle
	return old
}

// releaseHandle pauses and releases a detached handle. Nil is fine.
func releaseHandle(h Handle) {
	if h == nil {
		return
	}
	if err := h.Pause(); err != nil {
		log.Debug().Err(err).Msg("Pause during teardown failed")
	}
	if err := h.Release(); err != nil {
		log.Debug().Err(err).Msg("Release during teardown failed")
	}
}

// Seek sets the playback position on the open handle. Silently ignored
// when idle.
func (s *Session) Seek(seconds float64) {
	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()

	if handle == nil {
		return
	}
	if err := handle.SetPosition(seconds); err != nil {
		log.Error().Err(err).Float64("pos", seconds).Msg("Seek failed")
	}
}

// SetVolume clamps v to [0,100], stores it, and propagates it to the open
// handle if any. Always succeeds.
func (s *Session) SetVolume(v int) {
	if v < 0 {
		v = 0
	} else if v > 100 {
		v = 100
	}

	s.mu.Lock()
	s.volume = v
	handle := s.handle
	s.mu.Unlock()

	if s.observers.OnVolumeChange != nil {
		s.observers.OnVolumeChange(v)
	}

	if handle == nil {
		return
	}
	if err := handle.SetVolume(float64(v) / 100); err != nil {
		log.Error().Err(err).Int("volume", v).Msg("SetVolume failed")
	}
}

// Volume returns the stored volume.
func (s *Session) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// CurrentTrack returns the track bound to the open session, or nil.
func (s *Session) CurrentTrack() *catalog.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track == nil {
		return nil
	}
	trackCopy := *s.track
	return &trackCopy
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		CurrentTime: s.current,
		Duration:    s.duration,
		Volume:      s.volume,
		Loading:     s.state == stateLoading,
		IsPlaying:   s.state == statePlaying,
		IsPaused:    s.state == statePaused,
	}
	if s.track != nil {
		trackCopy := *s.track
		status.Track = &trackCopy
	}
	return status
}

// IsTrackPlaying reports whether the given track is loaded and playing.
func (s *Session) IsTrackPlaying(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track != nil && s.track.ID == id && s.state == statePlaying
}

// IsTrackPaused reports whether the given track is loaded and paused.
func (s *Session) IsTrackPaused(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track != nil && s.track.ID == id && s.state == statePaused
}

// IsTrackLoaded reports whether the given track is bound to the session,
// playing or paused.
func (s *Session) IsTrackLoaded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track != nil && s.track.ID == id
}

// markPlaying transitions to Playing and fires OnTrackStart, unless the
// session has moved on (stale gen) or is already playing.
func (s *Session) markPlaying(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.track == nil || s.state == statePlaying {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = statePlaying
	track := *s.track
	s.mu.Unlock()

	log.Debug().Str("track", track.ID).Str("from", prev.String()).Msg("Playback started")
	if s.observers.OnTrackStart != nil {
		s.observers.OnTrackStart(track)
	}
}

// markPaused transitions to Paused and fires OnTrackPause.
func (s *Session) markPaused() {
	s.mu.Lock()
	if s.track == nil || s.state == statePaused {
		s.mu.Unlock()
		return
	}
	s.state = statePaused
	track := *s.track
	s.mu.Unlock()

	if s.observers.OnTrackPause != nil {
		s.observers.OnTrackPause(track)
	}
}

// eventsFor builds the event sinks for one handle generation. Events from
// a superseded handle are dropped: a released handle may still have a
// ticker in flight.
func (s *Session) eventsFor(gen uint64) HandleEvents {
	live := func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.gen == gen
	}

	return HandleEvents{
		OnTimeUpdate: func(seconds float64) {
			s.mu.Lock()
			if s.gen != gen {
				s.mu.Unlock()
				return
			}
			s.current = seconds
			duration := s.duration
			s.mu.Unlock()

			if s.observers.OnTimeUpdate != nil {
				s.observers.OnTimeUpdate(seconds, duration)
			}
		},
		OnDurationKnown: func(seconds float64) {
			s.mu.Lock()
			if s.gen == gen {
				s.duration = seconds
			}
			s.mu.Unlock()
		},
		OnPlay: func() {
			s.markPlaying(gen)
		},
		OnPause: func() {
			if live() {
				s.markPaused()
			}
		},
		OnEnded: func() {
			s.mu.Lock()
			if s.gen != gen || s.track == nil {
				s.mu.Unlock()
				return
			}
			track := *s.track
			old := s.teardownLocked()
			s.mu.Unlock()

			releaseHandle(old)
			log.Info().Str("track", track.ID).Msg("Track ended")
			if s.observers.OnTrackEnd != nil {
				s.observers.OnTrackEnd(track)
			}
		},
		OnError: func(err error) {
			s.mu.Lock()
			if s.gen != gen {
				s.mu.Unlock()
				return
			}
			old := s.teardownLocked()
			s.mu.Unlock()

			releaseHandle(old)
			log.Error().Err(err).Msg("Audio playback error")
			if s.observers.OnError != nil {
				s.observers.OnError(errPlaybackFailed)
			}
		},
	}
}
