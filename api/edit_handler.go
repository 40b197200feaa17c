package api

import (
	"errors"
	"net/http"
	"net/url"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/horizons-db/archive-backend/editor"
	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/services"
)

// editHandler exposes editor.Session over HTTP. Each session lives in the
// registry between requests and is only reachable by the user who opened it.
type editHandler struct {
	responder Responder
	logger    zerolog.Logger
	deps      editor.Deps
	sessions  *sessionRegistry
	maxUpload int64
}

func newEditHandler(deps editor.Deps, sessions *sessionRegistry, maxUpload int64) editHandler {
	logger := log.With().Str("handlerName", "editHandler").Logger()
	deps.Logger = &logger

	return editHandler{
		responder: NewResponder(logger),
		logger:    logger,
		deps:      deps,
		sessions:  sessions,
		maxUpload: maxUpload,
	}
}

func editView(id uuid.UUID, s *editor.Session) EditView {
	view := EditView{
		SessionID: id.String(),
		ProjectID: s.ProjectID().String(),
		State:     s.State().String(),
		Fields:    s.Fields(),
		Draft:     s.Draft(),
	}
	if s.State() == editor.Viewing {
		p := services.NewProjectView(s.Project())
		view.Project = &p
	}
	return view
}

// beginEdit loads the project, checks that the caller may edit it and opens
// a session seeded with the current record.
func (h editHandler) beginEdit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		user := ctxGetUser(r.Context())

		session, err := editor.New(r.Context(), h.deps, projectID)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "project", err))
			return
		}
		if err := session.Begin(r.Context(), user.actor()); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		id := h.sessions.open(user.UserID, session)
		h.logger.Info().
			Str("sessionID", id.String()).
			Str("projectID", projectID.String()).
			Str("userID", user.UserID.String()).
			Msg("edit session opened")
		h.responder.WriteCreated(w, editView(id, session))
	}
}

// withSession resolves {sessionID} for the caller and holds the session lock
// while fn runs.
func (h editHandler) withSession(fn func(w http.ResponseWriter, r *http.Request, id uuid.UUID, e *editEntry)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "sessionID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		e, err := h.sessions.acquire(id, ctxGetUser(r.Context()).UserID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		defer h.sessions.release(e)
		fn(w, r, id, e)
	}
}

func (h editHandler) getSession() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, id uuid.UUID, e *editEntry) {
		h.responder.WriteJSON(w, editView(id, e.session))
	})
}

// setFields applies scalar edits in key order and stops at the first invalid one.
func (h editHandler) setFields() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, id uuid.UUID, e *editEntry) {
		var req FieldsRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := validateStruct(req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		keys := make([]string, 0, len(req.Fields))
		for k := range req.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := e.session.SetField(editor.FieldKey(k), req.Fields[k]); err != nil {
				h.responder.WriteError(w, fieldError(k, err))
				return
			}
		}
		h.responder.WriteJSON(w, editView(id, e.session))
	})
}

// fieldError reports malformed values as invalid fields and passes state
// errors through.
func fieldError(key string, err error) error {
	switch {
	case errors.Is(err, editor.ErrNotEditing),
		errors.Is(err, editor.ErrUnknownField),
		errors.Is(err, editor.ErrNotScalarField):
		return err
	}
	return errs.NewInvalidFieldError(key, err.Error())
}

func tagKindParam(r *http.Request) (models.TagKind, error) {
	kind, err := models.ParseTagKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", errs.NewBadRequestError(err.Error())
	}
	return kind, nil
}

// addTag runs one candidate through the taxonomy gate. A new keyword needs
// "confirm": without it the response is 409 needs_confirmation and the draft
// is unchanged.
func (h editHandler) addTag() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, id uuid.UUID, e *editEntry) {
		kind, err := tagKindParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		var req TagRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := validateStruct(req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		preset := requestPrompter(req.Confirm)
		tag, err := e.session.AdmitTag(r.Context(), preset, kind, req.Value)
		if err != nil {
			h.responder.WriteError(w, withPending(preset, err))
			return
		}
		h.responder.WriteJSON(w, map[string]interface{}{
			"tag":     tag,
			"kind":    kind,
			"session": editView(id, e.session),
		})
	})
}

func (h editHandler) removeTag() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, id uuid.UUID, e *editEntry) {
		kind, err := tagKindParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		value, err := url.PathUnescape(chi.URLParam(r, "value"))
		if err != nil {
			h.responder.WriteError(w, errs.NewBadRequestError("invalid tag value"))
			return
		}
		if err := e.session.RemoveTag(kind, value); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, editView(id, e.session))
	})
}

// stageImages queues every "images" file of a multipart form. Files before a
// rejected one stay queued.
func (h editHandler) stageImages() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, id uuid.UUID, e *editEntry) {
		if err := parseMultipart(w, r, h.maxUpload); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		images, err := formImages(r.MultipartForm)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if len(images) == 0 {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("images"))
			return
		}
		for _, img := range images {
			if err := e.session.StageUpload(img.Name, img.ContentType, img.Data); err != nil {
				h.responder.WriteError(w, err)
				return
			}
		}
		h.responder.WriteJSON(w, editView(id, e.session))
	})
}

func (h editHandler) unstageImage() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, id uuid.UUID, e *editEntry) {
		var req ImageRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		switch {
		case req.URL != "" && req.Restore:
			if err := e.session.UnstageDelete(req.URL); err != nil {
				h.responder.WriteError(w, err)
				return
			}
		case req.URL != "":
			if err := e.session.StageDelete(req.URL); err != nil {
				h.responder.WriteError(w, err)
				return
			}
		case req.Name != "":
			if err := e.session.UnstageUpload(req.Name); err != nil {
				h.responder.WriteError(w, err)
				return
			}
		default:
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("url"))
			return
		}
		h.responder.WriteJSON(w, editView(id, e.session))
	})
}

// save writes the draft. On failure the session stays open in Editing so the
// client can fix the draft or retry.
func (h editHandler) save() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, id uuid.UUID, e *editEntry) {
		result, err := e.session.Save(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapSaveError(err))
			return
		}
		h.sessions.close(id)

		h.responder.WriteJSON(w, SaveResponse{
			Status:   "saved",
			Project:  services.NewProjectView(result.Project),
			Sync:     result.Sync,
			Warnings: result.Warnings,
		})
	})
}

// wrapSaveError classifies store failures and leaves editor errors to toAPIError.
func wrapSaveError(err error) error {
	if toAPIError(err).StatusCode < http.StatusInternalServerError {
		return err
	}
	return wrapDatabaseError("save", "project", err)
}

// cancel discards the draft once the caller confirms. A decline keeps editing.
func (h editHandler) cancel() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, id uuid.UUID, e *editEntry) {
		var req CancelRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				h.responder.WriteError(w, err)
				return
			}
		}

		preset := requestPrompter(req.Confirm)
		discarded, err := e.session.Cancel(r.Context(), preset)
		if err != nil {
			h.responder.WriteError(w, withPending(preset, err))
			return
		}
		if !discarded {
			h.responder.WriteJSON(w, map[string]interface{}{
				"status":  "editing",
				"session": editView(id, e.session),
			})
			return
		}
		h.sessions.close(id)
		h.responder.WriteJSON(w, map[string]interface{}{
			"status":  "cancelled",
			"project": services.NewProjectView(e.session.Project()),
		})
	})
}
