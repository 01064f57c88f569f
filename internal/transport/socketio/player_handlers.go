package socketio

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/ariahq/aria-catalog-backend/internal/domain/playback"
)

// registerPlayerHandlers binds transport control intents to the playback
// session. Wrong-state requests are no-ops by session contract; only real
// faults reach the notifier.
func (s *Server) registerPlayerHandlers(client *socket.Socket, clientID string) {
	client.On("play", func(args ...any) {
		id, ok := argString(args, 0)
		if !ok || id == "" {
			return
		}
		log.Debug().Str("id", clientID).Str("track", id).Msg("play")

		var found bool
		for _, track := range s.deps.Store.Tracks() {
			if track.ID == id {
				found = true
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
					defer cancel()
					if err := s.deps.Session.PlayTrack(ctx, track); err != nil {
						if errors.Is(err, playback.ErrNoAudioFile) {
							s.deps.Notifier.Error("Track has no audio file")
						} else {
							log.Error().Err(err).Str("track", id).Msg("Play failed")
							s.deps.Notifier.Error("Failed to play track")
						}
						s.broadcastPlayerState()
					}
				}()
				break
			}
		}
		if !found {
			log.Warn().Str("track", id).Msg("Play request for track not on current page")
			s.deps.Notifier.Error("Track not found")
		}
	})

	client.On("pause", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("pause")
		s.deps.Session.PauseTrack()
	})

	client.On("resume", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("resume")
		if err := s.deps.Session.ResumeTrack(context.Background()); err != nil {
			log.Error().Err(err).Msg("Resume failed")
			s.deps.Notifier.Error("Failed to resume playback")
		}
	})

	client.On("togglePlay", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("togglePlay")
		if err := s.deps.Session.TogglePlayPause(context.Background()); err != nil {
			log.Error().Err(err).Msg("Toggle failed")
			s.deps.Notifier.Error("Failed to toggle playback")
		}
	})

	client.On("stop", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("stop")
		s.deps.Session.StopTrack()
		s.broadcastPlayerState()
	})

	client.On("seek", func(args ...any) {
		pos, ok := argFloat(args, 0)
		if !ok || pos < 0 {
			return
		}
		log.Debug().Str("id", clientID).Float64("pos", pos).Msg("seek")
		s.deps.Session.Seek(pos)
	})

	client.On("volume", func(args ...any) {
		vol, ok := argInt(args, 0)
		if !ok {
			return
		}
		log.Debug().Str("id", clientID).Int("vol", vol).Msg("volume")
		s.deps.Session.SetVolume(vol)
	})

	client.On("getPlayerState", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("getPlayerState")
		client.Emit("pushPlayerState", s.deps.Session.Status())
	})
}
