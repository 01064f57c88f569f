package genres

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

type mockLister struct {
	mu     sync.Mutex
	calls  int
	genres []string
	err    error
}

func (l *mockLister) ListGenres(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.genres, l.err
}

func (l *mockLister) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func TestFetchCachesGenres(t *testing.T) {
	lister := &mockLister{genres: []string{"Rock", "Jazz"}}
	s := NewStore(lister)

	if err := s.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := s.Genres(); !reflect.DeepEqual(got, []string{"Rock", "Jazz"}) {
		t.Errorf("genres = %v", got)
	}
	if s.Loading() {
		t.Error("loading flag not cleared")
	}
}

func TestFetchFailureClearsLoading(t *testing.T) {
	lister := &mockLister{err: errors.New("boom")}
	s := NewStore(lister)

	if err := s.Fetch(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if s.Loading() {
		t.Error("loading flag stuck after failure")
	}
	if len(s.Genres()) != 0 {
		t.Error("failed fetch must not replace the cache")
	}
}

func TestEnsureFetchesOnlyOnce(t *testing.T) {
	lister := &mockLister{genres: []string{"Rock"}}
	s := NewStore(lister)

	for i := 0; i < 3; i++ {
		if err := s.Ensure(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := lister.callCount(); got != 1 {
		t.Errorf("lister calls = %d, want 1", got)
	}
}

func TestEnsureRetriesAfterFailure(t *testing.T) {
	lister := &mockLister{err: errors.New("boom")}
	s := NewStore(lister)

	if err := s.Ensure(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	lister.err = nil
	lister.genres = []string{"Pop"}
	if err := s.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := s.Genres(); !reflect.DeepEqual(got, []string{"Pop"}) {
		t.Errorf("genres = %v", got)
	}
}

func TestSubscriberReceivesCopy(t *testing.T) {
	lister := &mockLister{genres: []string{"Rock"}}
	s := NewStore(lister)

	var received []string
	s.Subscribe(func(genres []string) { received = genres })

	if err := s.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}

	received[0] = "mutated"
	if s.Genres()[0] != "Rock" {
		t.Error("subscriber slice aliases the cache")
	}
}
