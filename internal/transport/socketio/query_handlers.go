package socketio

import (
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/ariahq/aria-catalog-backend/internal/domain/catalog"
)

// registerQueryHandlers binds filter, sort and pagination intents.
func (s *Server) registerQueryHandlers(client *socket.Socket, clientID string) {
	// initFilters carries the raw query string from the client's address
	// bar. Invalid values degrade to defaults field by field.
	client.On("initFilters", func(args ...any) {
		raw, _ := argString(args, 0)
		log.Debug().Str("id", clientID).Str("query", raw).Msg("initFilters")

		values, err := url.ParseQuery(raw)
		if err != nil {
			log.Warn().Err(err).Str("query", raw).Msg("Unparseable URL query, using defaults")
			values = url.Values{}
		}
		s.urlSync.Initialize(values)
	})

	client.On("search", func(args ...any) {
		text, ok := argString(args, 0)
		if !ok {
			return
		}
		log.Debug().Str("id", clientID).Str("text", text).Msg("search")
		s.deps.Queries.UpdateSearch(text)
	})

	client.On("filterGenre", func(args ...any) {
		genre, ok := argString(args, 0)
		if !ok {
			return
		}
		log.Debug().Str("id", clientID).Str("genre", genre).Msg("filterGenre")
		s.deps.Queries.UpdateGenreFilter(genre)
	})

	client.On("filterArtist", func(args ...any) {
		artist, ok := argString(args, 0)
		if !ok {
			return
		}
		log.Debug().Str("id", clientID).Str("artist", artist).Msg("filterArtist")
		s.deps.Queries.UpdateArtistFilter(artist)
	})

	client.On("sort", func(args ...any) {
		m, ok := argMap(args, 0)
		if !ok {
			return
		}
		field, _ := m["sortBy"].(string)
		order, _ := m["sortOrder"].(string)
		log.Debug().Str("id", clientID).Str("sortBy", field).Str("sortOrder", order).Msg("sort")

		err := s.deps.Queries.UpdateSorting(catalog.SortField(field), catalog.SortOrder(order))
		if err != nil {
			log.Warn().Err(err).Str("id", clientID).Msg("Rejected sort request")
		}
	})

	client.On("setPage", func(args ...any) {
		n, ok := argInt(args, 0)
		if !ok {
			return
		}
		log.Debug().Str("id", clientID).Int("page", n).Msg("setPage")
		s.deps.Queries.SetPage(n)
	})

	client.On("nextPage", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("nextPage")
		s.deps.Queries.NextPage()
	})

	client.On("prevPage", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("prevPage")
		s.deps.Queries.PreviousPage()
	})

	client.On("setItemsPerPage", func(args ...any) {
		n, ok := argInt(args, 0)
		if !ok {
			return
		}
		log.Debug().Str("id", clientID).Int("itemsPerPage", n).Msg("setItemsPerPage")
		s.deps.Queries.SetItemsPerPage(n)
	})

	client.On("clearFilters", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("clearFilters")
		s.deps.Queries.Reset()
		s.urlSync.Clear()
	})

	client.On("getTracks", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("getTracks")
		go s.refetch()
	})
}
