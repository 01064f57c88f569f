// Package genres caches the distinct genre list feeding the genre filter.
package genres

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Lister provides the distinct genre names known to the catalog.
type Lister interface {
	ListGenres(ctx context.Context) ([]string, error)
}

// Store caches the fetched genre list. Genres change rarely; the list is
// fetched on demand and kept until the next explicit fetch.
type Store struct {
	lister Lister

	mu          sync.Mutex
	genres      []string
	loading     bool
	fetched     bool
	subscribers []func([]string)
}

// NewStore creates an empty genre store.
func NewStore(lister Lister) *Store {
	return &Store{lister: lister}
}

// Subscribe registers a callback invoked after every successful fetch.
func (s *Store) Subscribe(fn func([]string)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Genres returns a copy of the cached list.
func (s *Store) Genres() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	genres := make([]string, len(s.genres))
	copy(genres, s.genres)
	return genres
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Fetch loads the genre list, replacing the cache. The loading flag is
// cleared on every path. Concurrent calls are collapsed to one fetch.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		log.Debug().Msg("Genre fetch already in flight, skipping")
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	genres, err := s.lister.ListGenres(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch genres: %w", err)
	}

	s.mu.Lock()
	s.genres = genres
	s.fetched = true
	subs := make([]func([]string), len(s.subscribers))
	copy(subs, s.subscribers)
	published := make([]string, len(genres))
	copy(published, genres)
	s.mu.Unlock()

	log.Debug().Int("count", len(genres)).Msg("Genres fetched")
	for _, fn := range subs {
		fn(published)
	}
	return nil
}

// Ensure fetches the list only if it has never been fetched.
func (s *Store) Ensure(ctx context.Context) error {
	s.mu.Lock()
	fetched := s.fetched
	s.mu.Unlock()

	if fetched {
		return nil
	}
	return s.Fetch(ctx)
}
