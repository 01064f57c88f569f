// Package query owns the catalog query state: search text, genre and artist
// filters, sort order and pagination. It is the single source of truth for
// "what subset of the catalog, in what order, on what page" and publishes
// settled changes to subscribers.
package query

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ariahq/aria-catalog-backend/internal/debounce"
	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
)

// Defaults. Fields at their default are omitted from the shareable URL.
const (
	DefaultSort     = catalog.SortByCreatedAt
	DefaultOrder    = catalog.OrderDesc
	DefaultPage     = 1
	DefaultPageSize = 10

	// SearchDebounceWindow is the quiet period applied to raw search input
	// before the settled value reaches query params and the URL.
	SearchDebounceWindow = 500 * time.Millisecond
)

// AllowedPageSizes is the closed set of page sizes the UI offers. URL values
// outside this set are dropped during parsing.
var AllowedPageSizes = []int{10, 20, 50, 100}

func allowedPageSize(n int) bool {
	for _, s := range AllowedPageSizes {
		if n == s {
			return true
		}
	}
	return false
}

// Snapshot is an immutable view of the query state handed to subscribers.
type Snapshot struct {
	Search        string // raw input, updated immediately
	SettledSearch string // debounced value feeding params and URL
	Genre         string // empty means no genre filter
	Artist        string // empty means no artist filter
	Sort          catalog.SortField
	Order         catalog.SortOrder
	Page          int
	PageSize      int
}

// Filters is the derived filter view.
type Filters struct {
	Search string `json:"search"`
	Genre  string `json:"genre,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// Sorting is the derived sort view.
type Sorting struct {
	Sort  catalog.SortField `json:"sortBy"`
	Order catalog.SortOrder `json:"sortOrder"`
}

// Filters returns the filter view of the snapshot.
func (s Snapshot) Filters() Filters {
	return Filters{Search: s.Search, Genre: s.Genre, Artist: s.Artist}
}

// Sorting returns the sort view of the snapshot.
func (s Snapshot) Sorting() Sorting {
	return Sorting{Sort: s.Sort, Order: s.Order}
}

// State is the query state machine. Safe for concurrent use. It performs no
// I/O and cannot fail: malformed inputs are clamped or ignored, with the
// single exception of out-of-enum sort values, which are a contract
// violation and rejected.
type State struct {
	mu            sync.Mutex
	search        string
	settledSearch string
	genre         string
	artist        string
	sort          catalog.SortField
	order         catalog.SortOrder
	page          int
	pageSize      int

	searchDeb   *debounce.Debouncer[string]
	subscribers []func(Snapshot)
}

// NewState creates a query state at defaults with the standard debounce window.
func NewState() *State {
	return NewStateWithWindow(SearchDebounceWindow)
}

// NewStateWithWindow creates a query state with a custom search debounce
// window. Tests use short windows.
func NewStateWithWindow(window time.Duration) *State {
	s := &State{
		sort:     DefaultSort,
		order:    DefaultOrder,
		page:     DefaultPage,
		pageSize: DefaultPageSize,
	}
	s.searchDeb = debounce.New(window, s.settleSearch)
	return s
}

// Close stops the debounce timer. Pending search input is discarded.
func (s *State) Close() {
	s.searchDeb.Stop()
}

// Subscribe registers a callback invoked after every settled change: filter,
// sort and pagination mutations fire immediately, search fires once the
// debounce window elapses. Callbacks run without the state lock held.
func (s *State) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Search:        s.search,
		SettledSearch: s.settledSearch,
		Genre:         s.genre,
		Artist:        s.artist,
		Sort:          s.sort,
		Order:         s.order,
		Page:          s.page,
		PageSize:      s.pageSize,
	}
}

// notify invokes subscribers with a snapshot taken under the lock.
func (s *State) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// settleSearch is the debounce sink for raw search input.
func (s *State) settleSearch(value string) {
	s.mu.Lock()
	s.settledSearch = value
	s.mu.Unlock()

	log.Debug().Str("search", value).Msg("Search settled")
	s.notify()
}

// flushSearch settles pending search input without waiting for the window.
func (s *State) flushSearch() {
	s.searchDeb.Flush()
}

// UpdateSearch sets the raw search text verbatim and resets the page to 1.
// The settled value is published only after the quiet window.
func (s *State) UpdateSearch(text string) {
	s.mu.Lock()
	s.search = text
	s.page = 1
	s.mu.Unlock()

	s.searchDeb.Set(text)
}

// UpdateGenreFilter sets the genre filter; empty clears it. Resets page to 1.
func (s *State) UpdateGenreFilter(genre string) {
	s.mu.Lock()
	s.genre = genre
	s.page = 1
	s.mu.Unlock()

	s.notify()
}

// UpdateArtistFilter sets the artist filter; empty clears it. Resets page to 1.
func (s *State) UpdateArtistFilter(artist string) {
	s.mu.Lock()
	s.artist = artist
	s.page = 1
	s.mu.Unlock()

	s.notify()
}

// UpdateSorting sets field and direction atomically and resets page to 1.
// Out-of-enum values are a contract violation and are rejected.
func (s *State) UpdateSorting(field catalog.SortField, order catalog.SortOrder) error {
	if !field.Valid() {
		return fmt.Errorf("invalid sort field %q", field)
	}
	if !order.Valid() {
		return fmt.Errorf("invalid sort order %q", order)
	}

	s.mu.Lock()
	s.sort = field
	s.order = order
	s.page = 1
	s.mu.Unlock()

	s.notify()
	return nil
}

// SetPage moves to page n. Values below 1 are silently ignored: stale or
// hand-edited page numbers are user input, not programmer error.
func (s *State) SetPage(n int) {
	if n < 1 {
		return
	}

	s.mu.Lock()
	s.page = n
	s.mu.Unlock()

	s.notify()
}

// NextPage advances one page. The ceiling is a presentation concern; the UI
// disables the control using the total page count.
func (s *State) NextPage() {
	s.mu.Lock()
	s.page++
	s.mu.Unlock()

	s.notify()
}

// PreviousPage goes back one page, flooring at 1.
func (s *State) PreviousPage() {
	s.mu.Lock()
	if s.page <= 1 {
		s.mu.Unlock()
		return
	}
	s.page--
	s.mu.Unlock()

	s.notify()
}

// SetItemsPerPage sets the page size and resets to page 1. Non-positive
// values are ignored.
func (s *State) SetItemsPerPage(n int) {
	if n <= 0 {
		return
	}

	s.mu.Lock()
	s.pageSize = n
	s.page = 1
	s.mu.Unlock()

	s.notify()
}

// Reset restores all fields to defaults and publishes the change.
func (s *State) Reset() {
	s.mu.Lock()
	s.search = ""
	s.settledSearch = ""
	s.genre = ""
	s.artist = ""
	s.sort = DefaultSort
	s.order = DefaultOrder
	s.page = DefaultPage
	s.pageSize = DefaultPageSize
	s.mu.Unlock()

	s.searchDeb.Set("")
	s.notify()
}

// BuildParams produces the normalized parameter set handed to the
// repository. Search is included only when the settled text is non-blank;
// genre and artist only when set.
func (s *State) BuildParams() catalog.ListParams {
	s.mu.Lock()
	defer s.mu.Unlock()

	params := catalog.ListParams{
		Page:  s.page,
		Limit: s.pageSize,
		Sort:  s.sort,
		Order: s.order,
	}

	if trimmed := strings.TrimSpace(s.settledSearch); trimmed != "" {
		params.Search = trimmed
	}
	if s.genre != "" {
		params.Genre = s.genre
	}
	if s.artist != "" {
		params.Artist = s.artist
	}

	return params
}
