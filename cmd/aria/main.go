// Package main is the entry point for the Aria catalog backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ariahq/aria-catalog-backend/internal/config"
	"github.com/ariahq/aria-catalog-backend/internal/domain/genres"
	"github.com/ariahq/aria-catalog-backend/internal/domain/modals"
	"github.com/ariahq/aria-catalog-backend/internal/domain/notify"
	"github.com/ariahq/aria-catalog-backend/internal/domain/playback"
	"github.com/ariahq/aria-catalog-backend/internal/domain/query"
	"github.com/ariahq/aria-catalog-backend/internal/domain/selection"
	"github.com/ariahq/aria-catalog-backend/internal/domain/tracks"
	"github.com/ariahq/aria-catalog-backend/internal/infra/localaudio"
	"github.com/ariahq/aria-catalog-backend/internal/infra/mpdaudio"
	"github.com/ariahq/aria-catalog-backend/internal/infra/rest"
	"github.com/ariahq/aria-catalog-backend/internal/transport/socketio"
	"github.com/ariahq/aria-catalog-backend/internal/version"
)

func main() {
	// Command line flags. Flags override the config file.
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	port := flag.String("port", "", "HTTP server port")
	catalogURL := flag.String("catalog-url", "", "Catalog API base URL")
	backend := flag.String("audio-backend", "", "Audio backend: mpd or local")
	mpdHost := flag.String("mpd-host", "", "MPD host")
	mpdPort := flag.Int("mpd-port", 0, "MPD port")
	mpdPassword := flag.String("mpd-password", "", "MPD password")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *catalogURL != "" {
		cfg.CatalogBaseURL = *catalogURL
	}
	if *backend != "" {
		cfg.AudioBackend = *backend
	}
	if *mpdHost != "" {
		cfg.MPD.Host = *mpdHost
	}
	if *mpdPort != 0 {
		cfg.MPD.Port = *mpdPort
	}
	if *mpdPassword != "" {
		cfg.MPD.Password = *mpdPassword
	}
	if *debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	versionInfo := version.GetInfo()
	log.Info().Msgf("%s starting", versionInfo.String())
	log.Info().
		Str("port", cfg.Port).
		Str("catalog", cfg.CatalogBaseURL).
		Str("audio_backend", cfg.AudioBackend).
		Msg("Configuration")

	// Catalog repository
	repo := rest.NewClient(cfg.CatalogBaseURL)
	defer repo.Close()

	// Audio backend
	var opener playback.Opener
	var mpdClient *mpdaudio.Client
	switch cfg.AudioBackend {
	case config.BackendMPD:
		mpdClient = mpdaudio.NewClient(cfg.MPD.Host, cfg.MPD.Port, cfg.MPD.Password)
		if err := mpdClient.Connect(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MPD")
		}
		defer mpdClient.Close()
		opener = mpdaudio.NewOpener(mpdClient)
		log.Info().Msg("MPD connection verified")
	case config.BackendLocal:
		opener = localaudio.NewOpener()
	}

	// Domain assembly
	queries := query.NewState()
	defer queries.Close()
	sel := selection.New()
	session := playback.NewSession(opener, cfg.CatalogBaseURL, playback.Observers{})
	store := tracks.NewStore(repo, queries, sel, session)
	genreStore := genres.NewStore(repo)
	notifier := notify.NewCenter()
	defer notifier.Close()
	modalPool := modals.NewPool()

	// Socket.io server
	socketServer, err := socketio.NewServer(socketio.Deps{
		Store:     store,
		Queries:   queries,
		Selection: sel,
		Session:   session,
		Genres:    genreStore,
		Notifier:  notifier,
		Modals:    modalPool,
	}, cfg.MaxConnections)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()
	session.BindObservers(socketServer.PlayerObservers())

	// Warm the genre cache; failure is not fatal, clients can retry.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := genreStore.Ensure(ctx); err != nil {
			log.Warn().Err(err).Msg("Initial genre fetch failed")
		}
	}()

	// HTTP server
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", socketServer)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if mpdClient != nil {
			if err := mpdClient.Ping(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"error","mpd":"disconnected"}`))
				return
			}
			w.Write([]byte(`{"status":"ok","mpd":"connected"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(version.GetInfo())
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		session.StopTrack()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+cfg.Port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}
