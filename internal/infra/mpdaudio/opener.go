package mpdaudio

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ariahq/aria-catalog-backend/internal/domain/playback"
)

// pollInterval is how often the handle polls MPD status for progress while
// open. Watcher events trigger an extra poll immediately.
const pollInterval = time.Second

// Opener opens playback handles on one MPD daemon.
type Opener struct {
	client *Client
}

// NewOpener wraps the MPD client as a handle opener.
func NewOpener(client *Client) *Opener {
	return &Opener{client: client}
}

// Open replaces the MPD queue with the given URL and returns a handle whose
// events are synthesized from MPD status polls.
func (o *Opener) Open(ctx context.Context, url string, events playback.HandleEvents) (playback.Handle, error) {
	if err := o.client.LoadURL(url); err != nil {
		return nil, err
	}

	h := &handle{
		client: o.client,
		events: events,
		done:   make(chan struct{}),
	}

	watch, stopWatch, err := o.client.Watch()
	if err != nil {
		// Polling alone still works, just with up to one interval of lag.
		log.Warn().Err(err).Msg("MPD watcher unavailable, falling back to polling only")
		watch = nil
		stopWatch = func() {}
	}
	h.stopWatch = stopWatch

	go h.loop(watch)
	return h, nil
}

// handle is one queued URL on the daemon. Event synthesis: MPD has no
// per-song callbacks, so state transitions are derived by diffing
// consecutive status polls.
type handle struct {
	client    *Client
	events    playback.HandleEvents
	stopWatch func()

	mu           sync.Mutex
	started      bool
	released     bool
	lastState    string
	durationSent bool

	done      chan struct{}
	closeOnce sync.Once
}

// Play starts playback from the beginning, or resumes after a pause.
func (h *handle) Play(ctx context.Context) error {
	h.mu.Lock()
	resume := h.started
	h.started = true
	h.mu.Unlock()

	if resume {
		return h.client.Pause(false)
	}
	return h.client.Play()
}

// Pause suspends playback on the daemon.
func (h *handle) Pause() error {
	h.mu.Lock()
	released := h.released
	h.mu.Unlock()

	if released {
		return nil
	}
	return h.client.Pause(true)
}

// Release stops the daemon and ends event synthesis. Safe to call twice.
func (h *handle) Release() error {
	var err error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.released = true
		h.mu.Unlock()

		close(h.done)
		h.stopWatch()
		err = h.client.Stop()
	})
	return err
}

// SetPosition seeks within the queued song.
func (h *handle) SetPosition(seconds float64) error {
	return h.client.Seek(int(seconds))
}

// SetVolume maps the 0-1 fraction onto MPD's 0-100 volume.
func (h *handle) SetVolume(fraction float64) error {
	return h.client.SetVolume(int(fraction*100 + 0.5))
}

// loop synthesizes handle events from status polls until Release.
func (h *handle) loop(watch <-chan string) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.poll()
		case _, ok := <-watch:
			if !ok {
				watch = nil
				continue
			}
			h.poll()
		}
	}
}

// poll reads MPD status and dispatches the events implied by the diff
// against the previous poll.
func (h *handle) poll() {
	status, err := h.client.Status()
	if err != nil {
		h.mu.Lock()
		released := h.released
		h.mu.Unlock()
		if !released {
			log.Error().Err(err).Msg("MPD status poll failed")
			if h.events.OnError != nil {
				h.events.OnError(err)
			}
		}
		return
	}

	state := status["state"]
	elapsed, _ := strconv.ParseFloat(status["elapsed"], 64)
	duration, _ := strconv.ParseFloat(status["duration"], 64)

	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	prev := h.lastState
	h.lastState = state
	started := h.started
	sendDuration := duration > 0 && !h.durationSent
	if sendDuration {
		h.durationSent = true
	}
	h.mu.Unlock()

	if sendDuration && h.events.OnDurationKnown != nil {
		h.events.OnDurationKnown(duration)
	}

	switch state {
	case "play":
		if prev != "play" && h.events.OnPlay != nil {
			h.events.OnPlay()
		}
		if h.events.OnTimeUpdate != nil {
			h.events.OnTimeUpdate(elapsed)
		}
	case "pause":
		if prev == "play" && h.events.OnPause != nil {
			h.events.OnPause()
		}
	case "stop":
		// The daemon reached end of song after we started it.
		if started && prev == "play" && h.events.OnEnded != nil {
			h.events.OnEnded()
		}
	}
}
