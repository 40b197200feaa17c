package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/taxonomy"
)

// catalogReader lists the catalogs the gate does not own.
type catalogReader interface {
	ListInstitutions(ctx context.Context) ([]models.Institution, error)
	ListPeople(ctx context.Context) ([]models.Person, error)
}

type catalogHandler struct {
	responder Responder
	logger    zerolog.Logger
	gate      *taxonomy.Gate
	catalogs  catalogReader
}

func newCatalogHandler(gate *taxonomy.Gate, catalogs catalogReader) catalogHandler {
	logger := log.With().Str("handlerName", "catalogHandler").Logger()

	return catalogHandler{
		responder: NewResponder(logger),
		logger:    logger,
		gate:      gate,
		catalogs:  catalogs,
	}
}

// getKeywords returns the keyword catalog as plain strings for autocomplete.
func (h catalogHandler) getKeywords() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keywords, err := h.gate.Keywords(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "keywords", err))
			return
		}
		out := make([]string, 0, len(keywords))
		for _, k := range keywords {
			out = append(out, k.Keyword)
		}
		h.responder.WriteJSON(w, map[string]interface{}{"keywords": out})
	}
}

// getKeywordCatalog is the admin view with creator and moderation flag.
func (h catalogHandler) getKeywordCatalog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keywords, err := h.gate.Keywords(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "keywords", err))
			return
		}
		h.responder.WriteJSON(w, map[string]interface{}{"keywords": keywords})
	}
}

func (h catalogHandler) getGenres() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		genres, err := h.gate.Genres(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "genres", err))
			return
		}
		out := make([]string, 0, len(genres))
		for _, g := range genres {
			out = append(out, g.Genre)
		}
		h.responder.WriteJSON(w, map[string]interface{}{"genres": out})
	}
}

func (h catalogHandler) getInstitutions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		institutions, err := h.catalogs.ListInstitutions(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "institutions", err))
			return
		}
		h.responder.WriteJSON(w, map[string]interface{}{"institutions": institutions})
	}
}

// getPeople lists names for creator/instructor autocomplete. Emails stay private.
func (h catalogHandler) getPeople() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		people, err := h.catalogs.ListPeople(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "people", err))
			return
		}
		out := make([]PersonSummary, 0, len(people))
		for _, p := range people {
			out = append(out, PersonSummary{ID: p.ID.String(), Name: p.Name})
		}
		h.responder.WriteJSON(w, map[string]interface{}{"people": out})
	}
}

func (h catalogHandler) addGenre() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenreRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := validateStruct(req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		genre, err := h.gate.AddGenre(r.Context(), req.Genre)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteCreated(w, map[string]string{"genre": genre})
	}
}

func (h catalogHandler) deleteKeyword() http.HandlerFunc {
	return h.deleteFromCatalog(models.KindKeyword)
}

func (h catalogHandler) deleteGenre() http.HandlerFunc {
	return h.deleteFromCatalog(models.KindGenre)
}

// deleteFromCatalog strips the value from every project before removing the
// catalog row and reports how many projects changed.
func (h catalogHandler) deleteFromCatalog(kind models.TagKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value, err := url.PathUnescape(chi.URLParam(r, "value"))
		if err != nil || value == "" {
			h.responder.WriteError(w, errs.NewBadRequestError("invalid "+string(kind)))
			return
		}
		touched, err := h.gate.DeleteFromCatalog(r.Context(), kind, value)
		if err != nil {
			h.logger.Error().Err(err).Str("kind", string(kind)).Str("value", value).Int("projectsUpdated", touched).Msg("catalog delete failed")
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, map[string]interface{}{
			"status":           "deleted",
			"kind":             kind,
			"value":            taxonomy.Normalize(kind, value),
			"projects_updated": touched,
		})
	}
}
