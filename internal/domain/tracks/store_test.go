package tracks

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
	"github.com/ariahq/aria-catalog-backend/internal/domain/playback"
	"github.com/ariahq/aria-catalog-backend/internal/domain/query"
	"github.com/ariahq/aria-catalog-backend/internal/domain/selection"
)

// mockRepo implements catalog.Repository with programmable responses and
// call counters.
type mockRepo struct {
	mu          sync.Mutex
	listCalls   int
	createCalls int
	listResult  catalog.PaginatedTracks
	listErr     error
	listBlock   chan struct{} // when set, List waits until closed
	deleted     []string
	manyResult  catalog.BatchDeleteResult
}

func (r *mockRepo) List(ctx context.Context, params catalog.ListParams) (catalog.PaginatedTracks, error) {
	r.mu.Lock()
	r.listCalls++
	block := r.listBlock
	r.mu.Unlock()

	if block != nil {
		<-block
	}
	return r.listResult, r.listErr
}

func (r *mockRepo) Create(ctx context.Context, data catalog.FormData) (catalog.Track, error) {
	r.mu.Lock()
	r.createCalls++
	r.mu.Unlock()
	return catalog.Track{ID: "new", Title: data.Title, Artist: data.Artist}, nil
}

func (r *mockRepo) Update(ctx context.Context, id string, data catalog.FormData) (catalog.Track, error) {
	return catalog.Track{ID: id, Title: data.Title, Artist: data.Artist}, nil
}

func (r *mockRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	r.deleted = append(r.deleted, id)
	r.mu.Unlock()
	return nil
}

func (r *mockRepo) DeleteMany(ctx context.Context, ids []string) (catalog.BatchDeleteResult, error) {
	return r.manyResult, nil
}

func (r *mockRepo) UploadAudio(ctx context.Context, id, filename string, file io.Reader) (catalog.Track, error) {
	return catalog.Track{ID: id, AudioFile: filename}, nil
}

func (r *mockRepo) DeleteAudio(ctx context.Context, id string) (catalog.Track, error) {
	return catalog.Track{ID: id}, nil
}

func (r *mockRepo) lists() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

// stubHandle is the minimal playable handle for session wiring.
type stubHandle struct{}

func (stubHandle) Play(ctx context.Context) error    { return nil }
func (stubHandle) Pause() error                      { return nil }
func (stubHandle) Release() error                    { return nil }
func (stubHandle) SetPosition(seconds float64) error { return nil }
func (stubHandle) SetVolume(fraction float64) error  { return nil }

type stubOpener struct{}

func (stubOpener) Open(ctx context.Context, url string, events playback.HandleEvents) (playback.Handle, error) {
	return stubHandle{}, nil
}

func newTestStore(repo *mockRepo) (*Store, *query.State, *selection.Set, *playback.Session) {
	queries := query.NewStateWithWindow(10 * time.Millisecond)
	sel := selection.New()
	session := playback.NewSession(stubOpener{}, "http://api", playback.Observers{})
	return NewStore(repo, queries, sel, session), queries, sel, session
}

func TestFetchTracksReplacesPage(t *testing.T) {
	repo := &mockRepo{
		listResult: catalog.PaginatedTracks{
			Tracks: []catalog.Track{{ID: "a"}, {ID: "b"}},
			Meta:   catalog.PaginationMeta{Total: 42, Page: 1, Limit: 10, TotalPages: 5},
		},
	}
	store, _, _, _ := newTestStore(repo)

	if err := store.FetchTracks(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := store.Snapshot()
	if len(snap.Tracks) != 2 || snap.Meta.Total != 42 || snap.TotalPages != 5 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Loading {
		t.Error("loading flag not cleared after fetch")
	}
}

func TestFetchSkipsWhenAlreadyInFlight(t *testing.T) {
	block := make(chan struct{})
	repo := &mockRepo{listBlock: block}
	store, _, _, _ := newTestStore(repo)

	done := make(chan struct{})
	go func() {
		store.FetchTracks(context.Background())
		close(done)
	}()

	// Wait until the first fetch is committed.
	for store.Loading() == false {
		time.Sleep(time.Millisecond)
	}

	if err := store.FetchTracks(context.Background()); err != nil {
		t.Fatalf("skipped fetch must not error, got %v", err)
	}
	if got := repo.lists(); got != 1 {
		t.Errorf("list calls = %d, want 1 (second fetch skipped)", got)
	}

	close(block)
	<-done
}

func TestFetchFailureClearsLoadingAndReturnsError(t *testing.T) {
	repo := &mockRepo{listErr: errors.New("boom")}
	store, _, _, _ := newTestStore(repo)

	if err := store.FetchTracks(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if store.Loading() {
		t.Error("loading flag stuck after failed fetch")
	}

	// The guard must be released: a later fetch runs again.
	repo.listErr = nil
	if err := store.FetchTracks(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := repo.lists(); got != 2 {
		t.Errorf("list calls = %d, want 2", got)
	}
}

func TestCreateValidatesBeforeAnyIO(t *testing.T) {
	repo := &mockRepo{}
	store, _, _, _ := newTestStore(repo)

	_, err := store.CreateTrack(context.Background(), catalog.FormData{Artist: "x"})
	var verrs catalog.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if repo.createCalls != 0 {
		t.Error("repository reached despite invalid form data")
	}
}

func TestCreateRefreshesPage(t *testing.T) {
	repo := &mockRepo{}
	store, _, _, _ := newTestStore(repo)

	_, err := store.CreateTrack(context.Background(), catalog.FormData{Title: "T", Artist: "A"})
	if err != nil {
		t.Fatal(err)
	}
	if got := repo.lists(); got != 1 {
		t.Errorf("list calls = %d, want 1 refresh after create", got)
	}
}

func TestUpdatePatchesFetchedPageInPlace(t *testing.T) {
	repo := &mockRepo{
		listResult: catalog.PaginatedTracks{
			Tracks: []catalog.Track{{ID: "a", Title: "Old"}, {ID: "b"}},
		},
	}
	store, _, _, _ := newTestStore(repo)
	if err := store.FetchTracks(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := store.UpdateTrack(context.Background(), "a", catalog.FormData{Title: "New", Artist: "A"})
	if err != nil {
		t.Fatal(err)
	}

	tracks := store.Tracks()
	if tracks[0].Title != "New" {
		t.Errorf("page not patched: %+v", tracks[0])
	}
	if got := repo.lists(); got != 1 {
		t.Errorf("list calls = %d, update must not refetch", got)
	}
}

func TestDeleteStopsPlaybackOfLoadedTrack(t *testing.T) {
	repo := &mockRepo{}
	store, _, _, session := newTestStore(repo)

	track := catalog.Track{ID: "a", AudioFile: "a.mp3"}
	if err := session.PlayTrack(context.Background(), track); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteTrack(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}

	if session.CurrentTrack() != nil {
		t.Error("playback still holds the deleted track")
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "a" {
		t.Errorf("deleted = %v", repo.deleted)
	}
}

func TestDeleteLeavesUnrelatedPlaybackAlone(t *testing.T) {
	repo := &mockRepo{}
	store, _, _, session := newTestStore(repo)

	if err := session.PlayTrack(context.Background(), catalog.Track{ID: "b", AudioFile: "b.mp3"}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteTrack(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if !session.IsTrackPlaying("b") {
		t.Error("deleting another track interrupted playback")
	}
}

func TestBulkDeleteClearsSelectionAndStopsPlayback(t *testing.T) {
	repo := &mockRepo{
		manyResult: catalog.BatchDeleteResult{Succeeded: []string{"a", "b"}},
	}
	store, _, sel, session := newTestStore(repo)

	sel.Select([]string{"a", "b"})
	if err := session.PlayTrack(context.Background(), catalog.Track{ID: "b", AudioFile: "b.mp3"}); err != nil {
		t.Fatal(err)
	}

	result, err := store.DeleteTracks(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Succeeded) != 2 {
		t.Errorf("result = %+v", result)
	}
	if sel.Count() != 0 {
		t.Error("selection not cleared after bulk delete")
	}
	if session.CurrentTrack() != nil {
		t.Error("playback still holds a bulk-deleted track")
	}
}

func TestDeleteTrackFileStopsLoadedPlayback(t *testing.T) {
	repo := &mockRepo{}
	store, _, _, session := newTestStore(repo)

	if err := session.PlayTrack(context.Background(), catalog.Track{ID: "a", AudioFile: "a.mp3"}); err != nil {
		t.Fatal(err)
	}

	if _, err := store.DeleteTrackFile(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if session.CurrentTrack() != nil {
		t.Error("playback outlived its deleted audio file")
	}
}

func TestTotalPagesRecomputesFromCurrentPageSize(t *testing.T) {
	repo := &mockRepo{
		listResult: catalog.PaginatedTracks{
			Meta: catalog.PaginationMeta{Total: 95, Limit: 10, TotalPages: 10},
		},
	}
	store, queries, _, _ := newTestStore(repo)
	if err := store.FetchTracks(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Page size changed locally; the next fetch has not happened yet.
	queries.SetItemsPerPage(50)
	if got := store.TotalPages(); got != 2 {
		t.Errorf("TotalPages = %d, want ceil(95/50) = 2", got)
	}
}

func TestSubscriberSeesLoadingTransitions(t *testing.T) {
	repo := &mockRepo{}
	store, _, _, _ := newTestStore(repo)

	var states []bool
	var mu sync.Mutex
	store.Subscribe(func(snap Snapshot) {
		mu.Lock()
		states = append(states, snap.Loading)
		mu.Unlock()
	})

	if err := store.FetchTracks(context.Background()); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || !states[0] || states[1] {
		t.Errorf("loading transitions = %v, want [true false]", states)
	}
}
