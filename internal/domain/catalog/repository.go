package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// FormData carries user-editable track fields for create and update.
type FormData struct {
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	Album      string   `json:"album,omitempty"`
	Genres     []string `json:"genres"`
	CoverImage string   `json:"coverImage,omitempty"`
}

// ValidationError describes a single rejected form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates per-field failures so the presentation layer
// can render inline feedback.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "invalid track data: " + strings.Join(msgs, "; ")
}

// Validate checks required fields. It runs before any I/O so that
// validation failures never reach the repository.
func (d FormData) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(d.Title) == "" {
		errs = append(errs, ValidationError{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(d.Artist) == "" {
		errs = append(errs, ValidationError{Field: "artist", Message: "artist is required"})
	}
	for _, g := range d.Genres {
		if strings.TrimSpace(g) == "" {
			errs = append(errs, ValidationError{Field: "genres", Message: "genre entries must be non-empty"})
			break
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Repository is the abstract catalog boundary. Concrete transport lives in
// internal/infra/rest.
type Repository interface {
	List(ctx context.Context, params ListParams) (PaginatedTracks, error)
	Create(ctx context.Context, data FormData) (Track, error)
	Update(ctx context.Context, id string, data FormData) (Track, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (BatchDeleteResult, error)
	UploadAudio(ctx context.Context, id, filename string, file io.Reader) (Track, error)
	DeleteAudio(ctx context.Context, id string) (Track, error)
}
