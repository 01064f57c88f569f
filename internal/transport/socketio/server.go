// Package socketio provides the Socket.io server binding UI intents to the
// catalog domain. All domain state flows to clients through push events;
// clients never poll.
package socketio

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/ariahq/aria-catalog-backend/internal/debounce"
	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
	"github.com/ariahq/aria-catalog-backend/internal/domain/genres"
	"github.com/ariahq/aria-catalog-backend/internal/domain/modals"
	"github.com/ariahq/aria-catalog-backend/internal/domain/notify"
	"github.com/ariahq/aria-catalog-backend/internal/domain/playback"
	"github.com/ariahq/aria-catalog-backend/internal/domain/query"
	"github.com/ariahq/aria-catalog-backend/internal/domain/selection"
	"github.com/ariahq/aria-catalog-backend/internal/domain/tracks"
)

// broadcastWindow collapses bursts of track list changes into one push.
const broadcastWindow = 50 * time.Millisecond

// fetchTimeout bounds one catalog fetch triggered by a client event.
const fetchTimeout = 30 * time.Second

// urlWriteWindow collapses rapid query changes into one pushUrlQuery.
const urlWriteWindow = 300 * time.Millisecond

// Deps are the domain collaborators the server binds to.
type Deps struct {
	Store     *tracks.Store
	Queries   *query.State
	Selection *selection.Set
	Session   *playback.Session
	Genres    *genres.Store
	Notifier  *notify.Center
	Modals    *modals.Pool
}

// Server handles Socket.io connections and events.
type Server struct {
	io      *socket.Server
	deps    Deps
	urlSync *query.URLSync
	limiter *ConnectionLimiter

	trackDeb *debounce.Debouncer[tracks.Snapshot]

	mu      sync.RWMutex
	clients map[string]*socket.Socket
}

// NewServer creates the Socket.io server and subscribes it to every domain
// store so that changes reach all connected clients.
func NewServer(deps Deps, maxConnections int) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:      socket.NewServer(nil, opts),
		deps:    deps,
		limiter: NewConnectionLimiter(maxConnections),
		clients: make(map[string]*socket.Socket),
	}

	s.urlSync = query.NewURLSync(deps.Queries, s, urlWriteWindow)
	s.trackDeb = debounce.New(broadcastWindow, func(snap tracks.Snapshot) {
		s.io.Emit("pushTrackList", snap)
	})

	deps.Store.Subscribe(func(snap tracks.Snapshot) {
		s.trackDeb.Set(snap)
	})
	deps.Selection.Subscribe(func(snap selection.Snapshot) {
		s.io.Emit("pushSelection", snap)
	})
	deps.Notifier.Subscribe(func(active []notify.Notification) {
		s.io.Emit("pushNotification", active)
	})
	deps.Modals.Subscribe(func(active *modals.Active) {
		s.io.Emit("pushModals", active)
	})
	deps.Genres.Subscribe(func(list []string) {
		s.io.Emit("pushGenres", list)
	})
	// Any settled query change invalidates the fetched page.
	deps.Queries.Subscribe(func(query.Snapshot) {
		go s.refetch()
	})

	s.setupHandlers()
	return s, nil
}

// ReplaceQuery pushes the canonical query string for the current filters.
// Clients apply it to the address bar with history.replaceState.
func (s *Server) ReplaceQuery(values url.Values) {
	s.io.Emit("pushUrlQuery", values.Encode())
}

// PlayerObservers returns the observer set wiring playback transitions to
// broadcast pushes. Bind these to the session before serving.
func (s *Server) PlayerObservers() playback.Observers {
	return playback.Observers{
		OnTrackStart:  func(catalog.Track) { s.broadcastPlayerState() },
		OnTrackEnd:    func(catalog.Track) { s.broadcastPlayerState() },
		OnTrackPause:  func(catalog.Track) { s.broadcastPlayerState() },
		OnTrackResume: func(catalog.Track) { s.broadcastPlayerState() },
		OnTimeUpdate: func(current, duration float64) {
			s.io.Emit("pushPlayerTime", map[string]float64{
				"currentTime": current,
				"duration":    duration,
			})
		},
		OnVolumeChange: func(int) { s.broadcastPlayerState() },
		OnError: func(err error) {
			s.deps.Notifier.Error(err.Error())
			s.broadcastPlayerState()
		},
	}
}

// setupHandlers registers the connection lifecycle and per-client events.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		remoteIP := clientIP(client)

		allowed, evictedID := s.limiter.TryAdd(clientID, remoteIP)
		if !allowed {
			log.Warn().Str("id", clientID).Str("ip", remoteIP).Msg("Connection refused")
			client.Disconnect(true)
			return
		}
		if evictedID != "" {
			s.mu.RLock()
			evicted := s.clients[evictedID]
			s.mu.RUnlock()
			if evicted != nil {
				log.Info().Str("id", evictedID).Msg("Evicting oldest external client")
				evicted.Disconnect(true)
			}
		}

		log.Info().Str("id", clientID).Str("ip", remoteIP).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		// Send initial state after a small delay so the client has its
		// listeners registered.
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushInitial(client)
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		s.registerQueryHandlers(client, clientID)
		s.registerTrackHandlers(client, clientID)
		s.registerPlayerHandlers(client, clientID)
	})
}

// pushInitial sends the full state to one freshly connected client.
func (s *Server) pushInitial(client *socket.Socket) {
	client.Emit("pushTrackList", s.deps.Store.Snapshot())
	client.Emit("pushPlayerState", s.deps.Session.Status())
	client.Emit("pushSelection", s.deps.Selection.Snapshot())
	client.Emit("pushModals", s.deps.Modals.Active())
	if genres := s.deps.Genres.Genres(); len(genres) > 0 {
		client.Emit("pushGenres", genres)
	}
}

// refetch loads the track page for the current query parameters. Failures
// surface as notifications; the previous page stays visible.
func (s *Server) refetch() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	if err := s.deps.Store.FetchTracks(ctx); err != nil {
		log.Error().Err(err).Msg("Track fetch failed")
		s.deps.Notifier.Error("Failed to load tracks")
	}
}

func (s *Server) broadcastPlayerState() {
	s.io.Emit("pushPlayerState", s.deps.Session.Status())
}

// ServeHTTP implements http.Handler for the Socket.io endpoint.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close shuts the server down and stops pending broadcast timers.
func (s *Server) Close() error {
	s.trackDeb.Stop()
	s.urlSync.Close()
	s.io.Close(nil)
	return nil
}

// clientIP extracts the remote address from the handshake.
func clientIP(client *socket.Socket) string {
	if hs := client.Handshake(); hs != nil {
		return hs.Address
	}
	return ""
}

// argString returns args[i] when it is a string.
func argString(args []any, i int) (string, bool) {
	if len(args) <= i {
		return "", false
	}
	v, ok := args[i].(string)
	return v, ok
}

// argInt returns args[i] when it is a JSON number.
func argInt(args []any, i int) (int, bool) {
	if len(args) <= i {
		return 0, false
	}
	v, ok := args[i].(float64)
	return int(v), ok
}

// argFloat returns args[i] when it is a JSON number.
func argFloat(args []any, i int) (float64, bool) {
	if len(args) <= i {
		return 0, false
	}
	v, ok := args[i].(float64)
	return v, ok
}

// argMap returns args[i] when it is a JSON object.
func argMap(args []any, i int) (map[string]any, bool) {
	if len(args) <= i {
		return nil, false
	}
	v, ok := args[i].(map[string]any)
	return v, ok
}

// argStrings returns args[i] when it is a JSON array of strings.
func argStrings(args []any, i int) ([]string, bool) {
	if len(args) <= i {
		return nil, false
	}
	raw, ok := args[i].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, str)
	}
	return out, true
}
