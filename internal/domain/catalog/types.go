// Package catalog defines the track read model and the repository boundary
// through which the catalog API is consumed.
package catalog

import "time"

// SortField identifies a sortable track attribute. The set is closed; the
// server rejects anything else.
type SortField string

// Sortable track attributes.
const (
	SortByTitle     SortField = "title"
	SortByArtist    SortField = "artist"
	SortByAlbum     SortField = "album"
	SortByCreatedAt SortField = "createdAt"
)

// Valid reports whether f is one of the sortable attributes.
func (f SortField) Valid() bool {
	switch f {
	case SortByTitle, SortByArtist, SortByAlbum, SortByCreatedAt:
		return true
	}
	return false
}

// SortOrder is the sort direction.
type SortOrder string

// Sort directions.
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Valid reports whether o is a recognized direction.
func (o SortOrder) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

// Track is the catalog read model. It is owned by the repository; this
// service never mutates a Track in place.
type Track struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Album      string    `json:"album,omitempty"`
	Genres     []string  `json:"genres"`
	Slug       string    `json:"slug"`
	CoverImage string    `json:"coverImage,omitempty"`
	AudioFile  string    `json:"audioFile,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Playable reports whether the track has an audio file attached.
func (t Track) Playable() bool {
	return t.AudioFile != ""
}

// ListParams is the normalized query handed to Repository.List.
// Search, Genre and Artist are optional; empty means "not set".
type ListParams struct {
	Page   int
	Limit  int
	Sort   SortField
	Order  SortOrder
	Search string
	Genre  string
	Artist string
}

// PaginationMeta is the server-reported pagination envelope. The server
// value is authoritative; locally derived page counts are reconciled
// against it once a fetch resolves.
type PaginationMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// TotalPagesFor computes ceil(total/limit), the same formula the server
// uses, for optimistic display before a fetch resolves.
func TotalPagesFor(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// PaginatedTracks is one page of catalog results.
type PaginatedTracks struct {
	Tracks []Track        `json:"data"`
	Meta   PaginationMeta `json:"meta"`
}

// BatchDeleteResult reports per-id outcome of a bulk delete.
type BatchDeleteResult struct {
	Succeeded []string `json:"success"`
	Failed    []string `json:"failed"`
}
