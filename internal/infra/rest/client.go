// Package rest implements the catalog repository against the catalog HTTP
// API.
package rest

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"resty.dev/v3"

	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
)

// apiError is the error envelope the catalog API returns on non-2xx.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e apiError) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// Client talks to the catalog API. It implements catalog.Repository and
// genres.Lister.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the catalog API at baseURL.
func NewClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}

// statusError turns a non-2xx response into an error carrying the server's
// message when one was sent.
func statusError(op string, res *resty.Response) error {
	if apiErr, ok := res.Error().(*apiError); ok && apiErr.text() != "" {
		return fmt.Errorf("%s: %s (status %d)", op, apiErr.text(), res.StatusCode())
	}
	return fmt.Errorf("%s: unexpected status %d", op, res.StatusCode())
}

// List fetches one page of tracks with the given query parameters.
func (c *Client) List(ctx context.Context, params catalog.ListParams) (catalog.PaginatedTracks, error) {
	queryParams := map[string]string{
		"page":  strconv.Itoa(params.Page),
		"limit": strconv.Itoa(params.Limit),
		"sort":  string(params.Sort),
		"order": string(params.Order),
	}
	if params.Search != "" {
		queryParams["search"] = params.Search
	}
	if params.Genre != "" {
		queryParams["genre"] = params.Genre
	}
	if params.Artist != "" {
		queryParams["artist"] = params.Artist
	}

	var page catalog.PaginatedTracks
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(queryParams).
		SetResult(&page).
		SetError(&apiError{}).
		Get("/api/tracks")
	if err != nil {
		return catalog.PaginatedTracks{}, fmt.Errorf("list tracks: %w", err)
	}
	if res.IsError() {
		return catalog.PaginatedTracks{}, statusError("list tracks", res)
	}
	return page, nil
}

// Create creates a track from the given form data.
func (c *Client) Create(ctx context.Context, data catalog.FormData) (catalog.Track, error) {
	var track catalog.Track
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(data).
		SetResult(&track).
		SetError(&apiError{}).
		Post("/api/tracks")
	if err != nil {
		return catalog.Track{}, fmt.Errorf("create track: %w", err)
	}
	if res.IsError() {
		return catalog.Track{}, statusError("create track", res)
	}
	return track, nil
}

// Update replaces a track's editable fields.
func (c *Client) Update(ctx context.Context, id string, data catalog.FormData) (catalog.Track, error) {
	var track catalog.Track
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBody(data).
		SetResult(&track).
		SetError(&apiError{}).
		Put("/api/tracks/{id}")
	if err != nil {
		return catalog.Track{}, fmt.Errorf("update track %s: %w", id, err)
	}
	if res.IsError() {
		return catalog.Track{}, statusError("update track", res)
	}
	return track, nil
}

// Delete removes one track.
func (c *Client) Delete(ctx context.Context, id string) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetError(&apiError{}).
		Delete("/api/tracks/{id}")
	if err != nil {
		return fmt.Errorf("delete track %s: %w", id, err)
	}
	if res.IsError() {
		return statusError("delete track", res)
	}
	return nil
}

// DeleteMany removes several tracks in one request. The server reports
// per-id outcomes; partial failure is not a transport error.
func (c *Client) DeleteMany(ctx context.Context, ids []string) (catalog.BatchDeleteResult, error) {
	var result catalog.BatchDeleteResult
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string][]string{"ids": ids}).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/api/tracks/delete")
	if err != nil {
		return catalog.BatchDeleteResult{}, fmt.Errorf("delete tracks: %w", err)
	}
	if res.IsError() {
		return catalog.BatchDeleteResult{}, statusError("delete tracks", res)
	}
	return result, nil
}

// UploadAudio attaches an audio file to a track via multipart upload.
func (c *Client) UploadAudio(ctx context.Context, id, filename string, file io.Reader) (catalog.Track, error) {
	var track catalog.Track
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetFileReader("file", filename, file).
		SetResult(&track).
		SetError(&apiError{}).
		Post("/api/tracks/{id}/upload")
	if err != nil {
		return catalog.Track{}, fmt.Errorf("upload audio for track %s: %w", id, err)
	}
	if res.IsError() {
		return catalog.Track{}, statusError("upload audio", res)
	}
	log.Debug().Str("track", id).Str("file", filename).Msg("Audio uploaded")
	return track, nil
}

// DeleteAudio detaches a track's audio file.
func (c *Client) DeleteAudio(ctx context.Context, id string) (catalog.Track, error) {
	var track catalog.Track
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&track).
		SetError(&apiError{}).
		Delete("/api/tracks/{id}/file")
	if err != nil {
		return catalog.Track{}, fmt.Errorf("delete audio for track %s: %w", id, err)
	}
	if res.IsError() {
		return catalog.Track{}, statusError("delete audio", res)
	}
	return track, nil
}

// ListGenres fetches the distinct genre names.
func (c *Client) ListGenres(ctx context.Context) ([]string, error) {
	var genres []string
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&genres).
		SetError(&apiError{}).
		Get("/api/genres")
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	if res.IsError() {
		return nil, statusError("list genres", res)
	}
	return genres, nil
}
