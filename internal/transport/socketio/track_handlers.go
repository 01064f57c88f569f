package socketio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
	"github.com/ariahq/aria-catalog-backend/internal/domain/modals"
)

// decodeFormData converts the JSON object from the wire into form data.
func decodeFormData(m map[string]any) (catalog.FormData, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return catalog.FormData{}, err
	}
	var data catalog.FormData
	if err := json.Unmarshal(raw, &data); err != nil {
		return catalog.FormData{}, err
	}
	return data, nil
}

// notifyMutationError turns a mutation failure into user feedback. Field
// validation failures get their own event so forms can render inline errors.
func (s *Server) notifyMutationError(client *socket.Socket, action string, err error) {
	var verrs catalog.ValidationErrors
	if errors.As(err, &verrs) {
		client.Emit("pushValidationErrors", verrs)
		return
	}
	log.Error().Err(err).Str("action", action).Msg("Track mutation failed")
	s.deps.Notifier.Error("Failed to " + action)
}

// registerTrackHandlers binds CRUD, selection, genre and dialog intents.
func (s *Server) registerTrackHandlers(client *socket.Socket, clientID string) {
	client.On("createTrack", func(args ...any) {
		m, ok := argMap(args, 0)
		if !ok {
			return
		}
		log.Debug().Str("id", clientID).Msg("createTrack")

		data, err := decodeFormData(m)
		if err != nil {
			log.Warn().Err(err).Msg("Malformed createTrack payload")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		if _, err := s.deps.Store.CreateTrack(ctx, data); err != nil {
			s.notifyMutationError(client, "create track", err)
			return
		}
		s.deps.Notifier.Success("Track created")
		s.deps.Modals.CloseAll()
	})

	client.On("updateTrack", func(args ...any) {
		m, ok := argMap(args, 0)
		if !ok {
			return
		}
		id, _ := m["id"].(string)
		payload, _ := m["data"].(map[string]any)
		if id == "" || payload == nil {
			return
		}
		log.Debug().Str("id", clientID).Str("track", id).Msg("updateTrack")

		data, err := decodeFormData(payload)
		if err != nil {
			log.Warn().Err(err).Msg("Malformed updateTrack payload")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		if _, err := s.deps.Store.UpdateTrack(ctx, id, data); err != nil {
			s.notifyMutationError(client, "update track", err)
			return
		}
		s.deps.Notifier.Success("Track updated")
		s.deps.Modals.CloseAll()
	})

	client.On("deleteTrack", func(args ...any) {
		id, ok := argString(args, 0)
		if !ok || id == "" {
			return
		}
		log.Debug().Str("id", clientID).Str("track", id).Msg("deleteTrack")

		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		if err := s.deps.Store.DeleteTrack(ctx, id); err != nil {
			s.notifyMutationError(client, "delete track", err)
			return
		}
		s.deps.Notifier.Success("Track deleted")
		s.deps.Modals.CloseAll()
	})

	client.On("deleteTracks", func(args ...any) {
		ids, ok := argStrings(args, 0)
		if !ok || len(ids) == 0 {
			return
		}
		log.Debug().Str("id", clientID).Int("count", len(ids)).Msg("deleteTracks")

		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		result, err := s.deps.Store.DeleteTracks(ctx, ids)
		if err != nil {
			s.notifyMutationError(client, "delete tracks", err)
			return
		}
		if len(result.Failed) > 0 {
			s.deps.Notifier.Error("Some tracks could not be deleted")
		} else {
			s.deps.Notifier.Success("Tracks deleted")
		}
		s.deps.Modals.CloseAll()
	})

	client.On("uploadTrackFile", func(args ...any) {
		m, ok := argMap(args, 0)
		if !ok {
			return
		}
		id, _ := m["id"].(string)
		filename, _ := m["filename"].(string)
		if id == "" || filename == "" {
			return
		}
		content, err := fileBytes(m["data"])
		if err != nil {
			log.Warn().Err(err).Str("track", id).Msg("Malformed upload payload")
			return
		}
		log.Debug().Str("id", clientID).Str("track", id).Str("file", filename).Int("bytes", len(content)).Msg("uploadTrackFile")

		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		if _, err := s.deps.Store.UploadTrackFile(ctx, id, filename, bytes.NewReader(content)); err != nil {
			s.notifyMutationError(client, "upload audio file", err)
			return
		}
		s.deps.Notifier.Success("Audio file uploaded")
		s.deps.Modals.CloseAll()
	})

	client.On("deleteTrackFile", func(args ...any) {
		id, ok := argString(args, 0)
		if !ok || id == "" {
			return
		}
		log.Debug().Str("id", clientID).Str("track", id).Msg("deleteTrackFile")

		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		if _, err := s.deps.Store.DeleteTrackFile(ctx, id); err != nil {
			s.notifyMutationError(client, "delete audio file", err)
			return
		}
		s.deps.Notifier.Success("Audio file deleted")
	})

	client.On("getGenres", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("getGenres")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()
			if err := s.deps.Genres.Ensure(ctx); err != nil {
				log.Error().Err(err).Msg("Genre fetch failed")
				s.deps.Notifier.Error("Failed to load genres")
				return
			}
			client.Emit("pushGenres", s.deps.Genres.Genres())
		}()
	})

	// Selection events.
	client.On("toggleTrackSelection", func(args ...any) {
		id, ok := argString(args, 0)
		if !ok || id == "" {
			return
		}
		s.deps.Selection.Toggle(id)
	})

	client.On("selectAllTracks", func(args ...any) {
		s.deps.Selection.SelectAll(s.deps.Store.Tracks())
	})

	client.On("clearTrackSelection", func(args ...any) {
		s.deps.Selection.Clear()
	})

	// Dialog events.
	client.On("openDeleteTrackModal", func(args ...any) {
		ids, ok := argStrings(args, 0)
		if !ok || len(ids) == 0 {
			return
		}
		s.deps.Modals.OpenDeleteTrack(ids)
	})

	client.On("openTrackFormModal", func(args ...any) {
		// No argument opens the create form.
		id, _ := argString(args, 0)
		if id == "" {
			s.deps.Modals.OpenTrackForm(nil)
			return
		}
		for _, track := range s.deps.Store.Tracks() {
			if track.ID == id {
				s.deps.Modals.OpenTrackForm(&track)
				return
			}
		}
		log.Warn().Str("track", id).Msg("openTrackFormModal for unknown track")
	})

	client.On("openUploadTrackFileModal", func(args ...any) {
		id, ok := argString(args, 0)
		if !ok || id == "" {
			return
		}
		s.deps.Modals.OpenUploadTrackFile(id)
	})

	client.On("closeModal", func(args ...any) {
		kind, ok := argString(args, 0)
		if !ok {
			s.deps.Modals.CloseAll()
			return
		}
		if err := s.deps.Modals.Close(modals.Kind(kind)); err != nil {
			log.Warn().Err(err).Str("id", clientID).Msg("closeModal rejected")
		}
	})
}

// fileBytes accepts the upload payload as raw binary or base64 text.
func fileBytes(v any) ([]byte, error) {
	switch data := v.(type) {
	case []byte:
		return data, nil
	case string:
		return base64.StdEncoding.DecodeString(data)
	default:
		return nil, errors.New("unsupported file payload type")
	}
}
