// Package localaudio plays catalog audio in-process through the system
// speaker. It decodes the MP3 stream over HTTP and drives the playback
// session's events from the decoder position.
package localaudio

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog/log"

	"github.com/ariahq/aria-catalog-backend/internal/domain/playback"
)

// progressInterval is how often open handles report their position.
const progressInterval = time.Second

// The speaker is a process-wide resource and is initialized once, at the
// sample rate of the first decoded stream. Later streams at other rates are
// resampled.
var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
)

func initSpeaker(rate beep.SampleRate) error {
	speakerOnce.Do(func() {
		speakerRate = rate
		speakerErr = speaker.Init(rate, rate.N(time.Second/5))
	})
	return speakerErr
}

// Opener opens in-process playback handles.
type Opener struct {
	http *http.Client
}

// NewOpener creates an opener fetching audio over HTTP.
func NewOpener() *Opener {
	return &Opener{http: &http.Client{}}
}

// Open fetches and decodes the MP3 at url and returns a handle wired to the
// speaker. Duration is known immediately from the decoded stream length.
func (o *Opener) Open(ctx context.Context, url string, events playback.HandleEvents) (playback.Handle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build audio request: %w", err)
	}

	res, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("failed to fetch audio: unexpected status %d", res.StatusCode)
	}

	streamer, format, err := mp3.Decode(res.Body)
	if err != nil {
		res.Body.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	if err := initSpeaker(format.SampleRate); err != nil {
		streamer.Close()
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	h := &handle{
		streamer: streamer,
		format:   format,
		events:   events,
		done:     make(chan struct{}),
	}

	var source beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		source = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}
	h.ctrl = &beep.Ctrl{Streamer: source, Paused: true}
	h.volume = &effects.Volume{Streamer: h.ctrl, Base: 2}

	if events.OnDurationKnown != nil {
		events.OnDurationKnown(format.SampleRate.D(streamer.Len()).Seconds())
	}

	log.Debug().Str("url", url).Int("rate", int(format.SampleRate)).Msg("Audio stream opened")
	return h, nil
}

// handle is one decoded MP3 on the speaker. The beep mixer owns the stream
// once queued; all stream access goes through the speaker lock.
type handle struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	events   playback.HandleEvents

	mu       sync.Mutex
	started  bool
	released bool

	done      chan struct{}
	closeOnce sync.Once
}

// Play queues the stream on the speaker on first call and unpauses it;
// subsequent calls just unpause.
func (h *handle) Play(ctx context.Context) error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return fmt.Errorf("handle released")
	}
	first := !h.started
	h.started = true
	h.mu.Unlock()

	if first {
		speaker.Play(beep.Seq(h.volume, beep.Callback(h.onStreamEnd)))
		go h.progressLoop()
	}

	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()

	if h.events.OnPlay != nil {
		h.events.OnPlay()
	}
	return nil
}

// Pause suspends the stream without releasing it.
func (h *handle) Pause() error {
	h.mu.Lock()
	if h.released || !h.started {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()

	if h.events.OnPause != nil {
		h.events.OnPause()
	}
	return nil
}

// Release drops the stream from the speaker and closes the decoder. Safe to
// call more than once.
func (h *handle) Release() error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.released = true
		started := h.started
		h.mu.Unlock()

		close(h.done)
		if started {
			speaker.Clear()
		}
		h.streamer.Close()
	})
	return nil
}

// SetPosition seeks the decoder to the given position.
func (h *handle) SetPosition(seconds float64) error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	sample := h.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if sample < 0 {
		sample = 0
	}
	if max := h.streamer.Len(); sample > max {
		sample = max
	}

	speaker.Lock()
	err := h.streamer.Seek(sample)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

// SetVolume maps the 0-1 fraction onto beep's exponential volume scale.
// Zero is full silence, not a very quiet signal.
func (h *handle) SetVolume(fraction float64) error {
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}

	speaker.Lock()
	if fraction == 0 {
		h.volume.Silent = true
	} else {
		h.volume.Silent = false
		h.volume.Volume = math.Log2(fraction)
	}
	speaker.Unlock()
	return nil
}

// onStreamEnd runs inside the speaker mixer when the stream is exhausted.
func (h *handle) onStreamEnd() {
	h.mu.Lock()
	released := h.released
	h.mu.Unlock()

	if released {
		return
	}
	if h.events.OnEnded != nil {
		// The callback runs under the speaker lock; hand off so the
		// session can call Release without deadlocking.
		go h.events.OnEnded()
	}
}

// progressLoop reports the decoder position until release.
func (h *handle) progressLoop() {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.mu.Lock()
			released := h.released
			h.mu.Unlock()
			if released {
				return
			}

			speaker.Lock()
			paused := h.ctrl.Paused
			pos := h.format.SampleRate.D(h.streamer.Position()).Seconds()
			speaker.Unlock()

			if !paused && h.events.OnTimeUpdate != nil {
				h.events.OnTimeUpdate(pos)
			}
		}
	}
}
