package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/horizons-db/archive-backend/editor"
	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/prompt"
	"github.com/horizons-db/archive-backend/services"
	"github.com/horizons-db/archive-backend/storage"
	"github.com/horizons-db/archive-backend/taxonomy"
)

type Responder struct {
	logger zerolog.Logger
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger}
}

func (r Responder) WriteJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	// Marshal the data first to check size and handle errors
	jsonData, err := json.Marshal(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	// Check if response is too large (e.g., > 10MB)
	const maxResponseSize = 10 * 1024 * 1024 // 10MB
	if len(jsonData) > maxResponseSize {
		r.logger.Error().
			Int("responseSize", len(jsonData)).
			Int("maxSize", maxResponseSize).
			Msg("response too large")

		w.WriteHeader(http.StatusRequestEntityTooLarge)
		r.WriteJSON(w, map[string]interface{}{
			"error":        "Response too large",
			"message":      "The requested data exceeds the maximum response size",
			"maxSizeMB":    maxResponseSize / (1024 * 1024),
			"actualSizeMB": len(jsonData) / (1024 * 1024),
		})
		return
	}

	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

// WriteCreated is WriteJSON with a 201 status.
func (r Responder) WriteCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	r.WriteJSON(w, data)
}

func (r Responder) WriteError(w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)

	// For unexpected errors, log and return generic internal error
	if apiErr == nil {
		r.logger.Error().Err(err).Msg("unexpected error")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		r.WriteJSON(w, map[string]interface{}{
			"error":   "Internal Server Error",
			"message": "An unexpected error occurred",
			"status":  "error",
		})
		return
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		r.logger.Error().Str("error", apiErr.GetFullError()).Msg("request failed")
	}

	// Build response based on error details
	response := map[string]interface{}{
		"error":  apiErr.Message(),
		"status": "error",
	}

	// Add field information if present (for validation errors)
	if apiErr.Field != "" {
		response["field"] = apiErr.Field
	}
	if apiErr.Details != "" {
		response["details"] = apiErr.Details
	}
	if apiErr.Reason != "" {
		response["reason"] = apiErr.Reason
	}

	// Add full error chain for debugging (especially useful for database errors)
	if apiErr.Cause != nil {
		response["cause"] = apiErr.GetFullError()
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(apiErr.StatusCode)
	r.WriteJSON(w, response)
}

// toAPIError maps core errors onto HTTP errors. It returns nil only for
// errors it cannot classify at all.
func toAPIError(err error) *errs.ApiErr {
	var apiErr *errs.ApiErr
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var rejection *taxonomy.Rejection
	if errors.As(err, &rejection) {
		if errors.Is(err, taxonomy.ErrUnsupportedKind) {
			return errs.Wrap(http.StatusBadRequest, rejection.Reason(), err)
		}
		return errs.NewValidationError(rejection.Reason(), rejection.Error(), nil)
	}

	var pending *pendingConfirmation
	if errors.As(err, &pending) {
		return errs.NewNeedsConfirmationError(pending.Prompt.Title, pending.Prompt.Message)
	}
	if errors.Is(err, prompt.ErrUnanswered) {
		return errs.NewNeedsConfirmationError("", err.Error())
	}

	switch {
	case errors.Is(err, editor.ErrTitleRequired):
		return errs.Wrap(http.StatusBadRequest, "title_required", err)
	case errors.Is(err, editor.ErrCreatorRequired):
		return errs.Wrap(http.StatusBadRequest, "creator_required", err)
	case errors.Is(err, editor.ErrImageLimit):
		return errs.Wrap(http.StatusBadRequest, "image_limit", err)
	case errors.Is(err, editor.ErrUnknownField), errors.Is(err, editor.ErrNotScalarField):
		return errs.Wrap(http.StatusBadRequest, "invalid_field", err)
	case errors.Is(err, editor.ErrUnknownImage):
		return errs.Wrap(http.StatusBadRequest, "unknown_image", err)
	case errors.Is(err, editor.ErrNotAuthorized):
		return errs.Wrap(http.StatusForbidden, "not_authorized", err)
	case errors.Is(err, editor.ErrNotEditing):
		return errs.Wrap(http.StatusConflict, "not_editing", err)
	case errors.Is(err, editor.ErrAlreadyEditing):
		return errs.Wrap(http.StatusConflict, "already_editing", err)

	case errors.Is(err, services.ErrInviteInvalid):
		return errs.Wrap(http.StatusNotFound, "invite_invalid", err)
	case errors.Is(err, services.ErrInviteUsed):
		return errs.Wrap(http.StatusConflict, "invite_used", err)
	case errors.Is(err, services.ErrInviteInactive):
		return errs.Wrap(http.StatusConflict, "invite_inactive", err)
	case errors.Is(err, services.ErrInviteExpired):
		return errs.Wrap(http.StatusGone, "invite_expired", err)
	case errors.Is(err, services.ErrInvalidRole):
		return errs.Wrap(http.StatusBadRequest, "invalid_role", err)

	case errors.Is(err, storage.ErrNotAnImage):
		return errs.Wrap(http.StatusBadRequest, "not_an_image", err)
	case errors.Is(err, storage.ErrObjectNotFound):
		return errs.NewStorageError("remove image", err)
	}

	if err == nil {
		return nil
	}
	return errs.NewDatabaseError("process", "request", err)
}

// wrapDatabaseError wraps a database error with context information
func wrapDatabaseError(operation, entity string, cause error) error {
	return errs.NewDatabaseError(operation, entity, cause)
}
