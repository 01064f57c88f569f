// Package tracks orchestrates the catalog list: it composes the query state,
// the selection set, the playback session and the track repository, and owns
// the fetched page of tracks.
package tracks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
	"github.com/ariahq/aria-catalog-backend/internal/domain/playback"
	"github.com/ariahq/aria-catalog-backend/internal/domain/query"
	"github.com/ariahq/aria-catalog-backend/internal/domain/selection"
)

// Snapshot is the view of the fetched page handed to subscribers.
type Snapshot struct {
	Tracks     []catalog.Track        `json:"data"`
	Meta       catalog.PaginationMeta `json:"meta"`
	Loading    bool                   `json:"loading"`
	TotalPages int                    `json:"totalPages"`
}

// Store holds the current page of tracks and runs catalog mutations. A fetch
// requested while one is already in flight is skipped, not queued: the query
// state that triggered it will trigger another once it settles again.
type Store struct {
	repo      catalog.Repository
	queries   *query.State
	selection *selection.Set
	session   *playback.Session

	mu          sync.Mutex
	tracks      []catalog.Track
	meta        catalog.PaginationMeta
	fetching    bool
	subscribers []func(Snapshot)
}

// NewStore wires the store to its collaborators. It does not fetch; the
// transport triggers the first fetch once a client connects.
func NewStore(repo catalog.Repository, queries *query.State, sel *selection.Set, session *playback.Session) *Store {
	return &Store{
		repo:      repo,
		queries:   queries,
		selection: sel,
		session:   session,
	}
}

// Subscribe registers a callback invoked after every change to the fetched
// page or the loading flag.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Snapshot returns the current page view.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	tracks := make([]catalog.Track, len(s.tracks))
	copy(tracks, s.tracks)
	return Snapshot{
		Tracks:     tracks,
		Meta:       s.meta,
		Loading:    s.fetching,
		TotalPages: s.meta.TotalPages,
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Tracks returns a copy of the fetched page.
func (s *Store) Tracks() []catalog.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	tracks := make([]catalog.Track, len(s.tracks))
	copy(tracks, s.tracks)
	return tracks
}

// Meta returns the pagination metadata from the last successful fetch.
func (s *Store) Meta() catalog.PaginationMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetching
}

// TotalPages recomputes the page count locally from the last known total and
// the current page size. The server's count from the next fetch is
// authoritative; this value bridges the gap after a page size change.
func (s *Store) TotalPages() int {
	s.mu.Lock()
	total := s.meta.Total
	s.mu.Unlock()
	return catalog.TotalPagesFor(total, s.queries.Snapshot().PageSize)
}

// FetchTracks lists the catalog with the current query parameters and
// replaces the fetched page. If a fetch is already in flight the call is
// skipped. The loading flag is cleared on every path.
func (s *Store) FetchTracks(ctx context.Context) error {
	s.mu.Lock()
	if s.fetching {
		s.mu.Unlock()
		log.Debug().Msg("Fetch already in flight, skipping")
		return nil
	}
	s.fetching = true
	s.mu.Unlock()
	s.notify()

	defer func() {
		s.mu.Lock()
		s.fetching = false
		s.mu.Unlock()
		s.notify()
	}()

	params := s.queries.BuildParams()
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to fetch tracks: %w", err)
	}

	s.mu.Lock()
	s.tracks = page.Tracks
	s.meta = page.Meta
	s.mu.Unlock()

	log.Debug().
		Int("count", len(page.Tracks)).
		Int("page", page.Meta.Page).
		Int("total", page.Meta.Total).
		Msg("Track page fetched")
	return nil
}

// CreateTrack validates the form data, creates the track and refreshes the
// page. Validation failures are returned before any I/O happens.
func (s *Store) CreateTrack(ctx context.Context, data catalog.FormData) (catalog.Track, error) {
	if err := data.Validate(); err != nil {
		return catalog.Track{}, err
	}

	track, err := s.repo.Create(ctx, data)
	if err != nil {
		return catalog.Track{}, fmt.Errorf("failed to create track: %w", err)
	}

	log.Info().Str("track", track.ID).Str("title", track.Title).Msg("Track created")
	if err := s.FetchTracks(ctx); err != nil {
		log.Error().Err(err).Msg("Refresh after create failed")
	}
	return track, nil
}

// UpdateTrack validates the form data, updates the track and patches it into
// the fetched page in place.
func (s *Store) UpdateTrack(ctx context.Context, id string, data catalog.FormData) (catalog.Track, error) {
	if err := data.Validate(); err != nil {
		return catalog.Track{}, err
	}

	track, err := s.repo.Update(ctx, id, data)
	if err != nil {
		return catalog.Track{}, fmt.Errorf("failed to update track %s: %w", id, err)
	}

	s.replaceTrack(track)
	log.Info().Str("track", track.ID).Msg("Track updated")
	return track, nil
}

// DeleteTrack deletes one track. If that track is loaded in the playback
// session, playback stops first; the audio it was streaming no longer exists.
func (s *Store) DeleteTrack(ctx context.Context, id string) error {
	if s.session.IsTrackLoaded(id) {
		s.session.StopTrack()
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete track %s: %w", id, err)
	}

	s.selection.Remove([]string{id})
	log.Info().Str("track", id).Msg("Track deleted")
	if err := s.FetchTracks(ctx); err != nil {
		log.Error().Err(err).Msg("Refresh after delete failed")
	}
	return nil
}

// DeleteTracks bulk-deletes the given tracks, clears the selection and
// refreshes the page. Playback stops if the loaded track is among them.
// Partial failure is not an error; the result carries both outcomes.
func (s *Store) DeleteTracks(ctx context.Context, ids []string) (catalog.BatchDeleteResult, error) {
	for _, id := range ids {
		if s.session.IsTrackLoaded(id) {
			s.session.StopTrack()
			break
		}
	}

	result, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return catalog.BatchDeleteResult{}, fmt.Errorf("failed to delete tracks: %w", err)
	}

	s.selection.Clear()
	log.Info().
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Msg("Bulk delete finished")
	if err := s.FetchTracks(ctx); err != nil {
		log.Error().Err(err).Msg("Refresh after bulk delete failed")
	}
	return result, nil
}

// UploadTrackFile attaches an audio file to a track and patches the updated
// track into the fetched page.
func (s *Store) UploadTrackFile(ctx context.Context, id, filename string, file io.Reader) (catalog.Track, error) {
	track, err := s.repo.UploadAudio(ctx, id, filename, file)
	if err != nil {
		return catalog.Track{}, fmt.Errorf("failed to upload audio for track %s: %w", id, err)
	}

	s.replaceTrack(track)
	log.Info().Str("track", id).Str("file", track.AudioFile).Msg("Audio file uploaded")
	return track, nil
}

// DeleteTrackFile detaches a track's audio file. Playback stops first if the
// track is loaded.
func (s *Store) DeleteTrackFile(ctx context.Context, id string) (catalog.Track, error) {
	if s.session.IsTrackLoaded(id) {
		s.session.StopTrack()
	}

	track, err := s.repo.DeleteAudio(ctx, id)
	if err != nil {
		return catalog.Track{}, fmt.Errorf("failed to delete audio for track %s: %w", id, err)
	}

	s.replaceTrack(track)
	log.Info().Str("track", id).Msg("Audio file deleted")
	return track, nil
}

// replaceTrack swaps the updated track into the fetched page, if present.
func (s *Store) replaceTrack(track catalog.Track) {
	s.mu.Lock()
	replaced := false
	for i := range s.tracks {
		if s.tracks[i].ID == track.ID {
			s.tracks[i] = track
			replaced = true
			break
		}
	}
	s.mu.Unlock()

	if replaced {
		s.notify()
	}
}
