package api

import (
	"github.com/horizons-db/archive-backend/editor"
	"github.com/horizons-db/archive-backend/relations"
	"github.com/horizons-db/archive-backend/services"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	projectHandler projectHandler
	catalogHandler catalogHandler
	editHandler    editHandler
	inviteHandler  inviteHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string `json:"error" example:"Internal Server Error"`
	Status  string `json:"status" example:"error"`
	Field   string `json:"field,omitempty" example:"title"`
	Reason  string `json:"reason,omitempty" example:"unknown_genre"`
	Details string `json:"details,omitempty" example:"Additional error details"`
	Cause   string `json:"cause,omitempty" example:"Underlying error cause"`
}

// ProjectCollection is the project listing.
type ProjectCollection struct {
	Projects []services.ProjectView `json:"projects"`
	Total    int                    `json:"total"`
}

// EditView is the state of an edit session as the client renders it.
type EditView struct {
	SessionID string                `json:"session_id"`
	ProjectID string                `json:"project_id"`
	State     string                `json:"state"`
	Fields    []editor.Field        `json:"fields"`
	Draft     *editor.Draft         `json:"draft,omitempty"`
	Project   *services.ProjectView `json:"project,omitempty"`
}

// SaveResponse is returned once a draft has been written.
type SaveResponse struct {
	Status   string               `json:"status"`
	Project  services.ProjectView `json:"project"`
	Sync     relations.Report     `json:"sync"`
	Warnings []string             `json:"warnings,omitempty"`
}

// TagRequest adds one tag to a draft. Confirm answers the new-keyword prompt.
type TagRequest struct {
	Value   string `json:"value" validate:"required"`
	Confirm *bool  `json:"confirm,omitempty"`
}

// FieldsRequest sets scalar draft fields by key.
type FieldsRequest struct {
	Fields map[string]string `json:"fields" validate:"required"`
}

// ImageRequest unstages an image: URL marks a stored image for deletion
// (or keeps it again with Restore), Name drops a queued upload.
type ImageRequest struct {
	URL     string `json:"url,omitempty"`
	Name    string `json:"name,omitempty"`
	Restore bool   `json:"restore,omitempty"`
}

// CancelRequest answers the discard prompt.
type CancelRequest struct {
	Confirm *bool `json:"confirm,omitempty"`
}

type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type InviteUpdateRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type GenreRequest struct {
	Genre string `json:"genre" validate:"required,max=100"`
}

// PersonSummary is the public view of a person.
type PersonSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
