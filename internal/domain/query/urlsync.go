package query

import (
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ariahq/aria-catalog-backend/internal/debounce"
	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
)

// Recognized URL query keys.
const (
	keySearch       = "search"
	keyGenre        = "genre"
	keyArtist       = "artist"
	keySortBy       = "sortBy"
	keySortOrder    = "sortOrder"
	keyPage         = "page"
	keyItemsPerPage = "itemsPerPage"
)

// Locator is the shareable-location collaborator. The transport implements
// it by pushing the canonical query string to the client, which applies it
// to the address bar.
type Locator interface {
	ReplaceQuery(values url.Values)
}

// URLSync keeps the shareable URL and the query state in step. Parsing is
// lenient: invalid or unparseable values are dropped, never errored, so a
// stale or hand-edited URL degrades to defaults field by field. Writing is
// debounced and never happens before Initialize has run, which guards
// against clobbering a not-yet-parsed URL with defaults.
type URLSync struct {
	state   *State
	locator Locator
	deb     *debounce.Debouncer[url.Values]

	mu          sync.Mutex
	initialized bool
}

// NewURLSync wires a URLSync to the state. It subscribes to settled state
// changes; call Initialize with the client's current URL query before any
// writes can occur.
func NewURLSync(state *State, locator Locator, window time.Duration) *URLSync {
	u := &URLSync{
		state:   state,
		locator: locator,
	}
	u.deb = debounce.New(window, func(values url.Values) {
		u.locator.ReplaceQuery(values)
	})

	state.Subscribe(func(snap Snapshot) {
		if !u.isInitialized() {
			return
		}
		u.deb.Set(EncodeQuery(snap))
	})

	return u
}

func (u *URLSync) isInitialized() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.initialized
}

// Close stops the pending write timer.
func (u *URLSync) Close() {
	u.deb.Stop()
}

// Initialize parses the recognized keys out of the given query values and
// applies every valid one to the state, then arms serialization.
func (u *URLSync) Initialize(values url.Values) {
	applyURLFilters(u.state, values)

	u.mu.Lock()
	u.initialized = true
	u.mu.Unlock()

	log.Debug().Str("query", values.Encode()).Msg("Filters initialized from URL")
}

// Clear replaces the location query with an empty one. No-op before
// initialization.
func (u *URLSync) Clear() {
	if !u.isInitialized() {
		return
	}
	u.deb.Cancel()
	u.locator.ReplaceQuery(url.Values{})
}

// queryParam returns the trimmed first value for key, or "" when absent or
// blank.
func queryParam(values url.Values, key string) string {
	return strings.TrimSpace(values.Get(key))
}

// applyURLFilters applies each valid recognized key to the state. Field
// order matters: pagination is applied last so that filter application does
// not reset a page the URL explicitly carries.
func applyURLFilters(s *State, values url.Values) {
	s.mu.Lock()

	if v := queryParam(values, keySearch); v != "" {
		s.search = v
		s.settledSearch = v
	}
	if v := queryParam(values, keyGenre); v != "" {
		s.genre = v
	}
	if v := queryParam(values, keyArtist); v != "" {
		s.artist = v
	}
	if v := queryParam(values, keySortBy); v != "" {
		if f := catalog.SortField(v); f.Valid() {
			s.sort = f
		}
	}
	if v := queryParam(values, keySortOrder); v != "" {
		if o := catalog.SortOrder(v); o.Valid() {
			s.order = o
		}
	}
	if v := queryParam(values, keyPage); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.page = n
		}
	}
	if v := queryParam(values, keyItemsPerPage); v != "" {
		if n, err := strconv.Atoi(v); err == nil && allowedPageSize(n) {
			s.pageSize = n
		}
	}

	s.mu.Unlock()
	s.notify()
}

// EncodeQuery serializes a snapshot to URL query values, omitting fields at
// their default and empty values to keep shared URLs minimal.
func EncodeQuery(snap Snapshot) url.Values {
	values := url.Values{}

	if snap.SettledSearch != "" {
		values.Set(keySearch, snap.SettledSearch)
	}
	if snap.Genre != "" {
		values.Set(keyGenre, snap.Genre)
	}
	if snap.Artist != "" {
		values.Set(keyArtist, snap.Artist)
	}
	if snap.Sort != DefaultSort {
		values.Set(keySortBy, string(snap.Sort))
	}
	if snap.Order != DefaultOrder {
		values.Set(keySortOrder, string(snap.Order))
	}
	if snap.Page != DefaultPage {
		values.Set(keyPage, strconv.Itoa(snap.Page))
	}
	if snap.PageSize != DefaultPageSize {
		values.Set(keyItemsPerPage, strconv.Itoa(snap.PageSize))
	}

	return values
}
