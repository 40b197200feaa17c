package api

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/services"
)

type inviteHandler struct {
	responder Responder
	logger    zerolog.Logger
	invites   *services.InviteService
}

func newInviteHandler(invites *services.InviteService) inviteHandler {
	logger := log.With().Str("handlerName", "inviteHandler").Logger()

	return inviteHandler{
		responder: NewResponder(logger),
		logger:    logger,
		invites:   invites,
	}
}

func (h inviteHandler) getInvites() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invites, err := h.invites.List(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "invites", err))
			return
		}
		h.responder.WriteJSON(w, map[string]interface{}{
			"invites": invites,
			"total":   len(invites),
		})
	}
}

// createInvite issues a code for an email address and mails it.
func (h inviteHandler) createInvite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InviteRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := validateStruct(req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user := ctxGetUser(r.Context())
		invite, err := h.invites.Create(r.Context(), req.Email, &user.UserID)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create", "invite", err))
			return
		}
		h.responder.WriteCreated(w, invite)
	}
}

func (h inviteHandler) updateInvite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inviteID, err := uuidParam(r, "inviteID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		var req InviteUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := validateStruct(req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := h.invites.SetActive(r.Context(), inviteID, *req.Active); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("update", "invite", err))
			return
		}
		h.responder.WriteJSON(w, map[string]interface{}{
			"id":        inviteID.String(),
			"is_active": *req.Active,
		})
	}
}

func (h inviteHandler) deleteInvite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inviteID, err := uuidParam(r, "inviteID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := h.invites.Delete(r.Context(), inviteID); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("delete", "invite", err))
			return
		}
		h.responder.WriteJSON(w, map[string]string{
			"status": "deleted",
			"id":     inviteID.String(),
		})
	}
}

// redeemInvite creates the caller's archive profile. The email on the token
// wins over the one in the body.
func (h inviteHandler) redeemInvite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := ctxGetUser(r.Context())
		if user.Person != nil {
			h.responder.WriteError(w, errs.NewConflictError("account already has an archive profile"))
			return
		}

		var req services.Redemption
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if user.Email != "" {
			req.Email = user.Email
		}
		req.Email = strings.TrimSpace(req.Email)
		if err := validateStruct(req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		person, err := h.invites.Redeem(r.Context(), user.UserID, req)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.logger.Info().Str("userID", user.UserID.String()).Str("personID", person.ID.String()).Msg("invite redeemed")
		h.responder.WriteCreated(w, person)
	}
}
