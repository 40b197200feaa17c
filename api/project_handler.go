package api

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/services"
)

type projectHandler struct {
	responder Responder
	logger    zerolog.Logger
	projects  *services.ProjectService
	maxUpload int64
}

func newProjectHandler(projects *services.ProjectService, maxUpload int64) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return projectHandler{
		responder: NewResponder(logger),
		logger:    logger,
		projects:  projects,
		maxUpload: maxUpload,
	}
}

// getAllProjects lists projects matching the query filters
// @Summary List projects
// @Description Lists projects newest first. keyword may repeat and matches any of the given keywords.
// @Tags Projects
// @Produce json
// @Param title query string false "Title contains"
// @Param creator query string false "Creator name contains"
// @Param institution query string false "Institution name"
// @Param keyword query []string false "Keyword (any of)"
// @Param genre query string false "Genre"
// @Success 200 {object} ProjectCollection
// @Failure 500 {object} ErrorResponse
// @Router /projects [get]
func (h projectHandler) getAllProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := filterFromQuery(r)

		projects, err := h.projects.List(r.Context(), filter)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "projects", err))
			return
		}

		h.responder.WriteJSON(w, ProjectCollection{
			Projects: projects,
			Total:    len(projects),
		})
	}
}

func filterFromQuery(r *http.Request) models.ProjectFilter {
	q := r.URL.Query()
	var keywords []string
	for _, k := range q["keyword"] {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return models.ProjectFilter{
		Title:       strings.TrimSpace(q.Get("title")),
		Creator:     strings.TrimSpace(q.Get("creator")),
		Institution: strings.TrimSpace(q.Get("institution")),
		Keywords:    keywords,
		Genre:       strings.TrimSpace(q.Get("genre")),
	}
}

// getProject retrieves a specific project by ID
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} services.ProjectView
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid projectID"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Router /project/{projectID} [get]
func (h projectHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.Get(r.Context(), projectID)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "project", err))
			return
		}

		h.responder.WriteJSON(w, project)
	}
}

// createProject stores a new submission. It accepts either a JSON body or a
// multipart form with a "project" JSON part and "images" files. New keywords
// need "confirm": without it the response is 409 needs_confirmation.
// @Summary Create project
// @Tags Projects
// @Accept json,mpfd
// @Produce json
// @Success 201 {object} services.CreateResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Conflict - needs confirmation"
// @Failure 422 {object} ErrorResponse "Unprocessable - tag rejected"
// @Router /project [post]
func (h projectHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := ctxGetUser(r.Context())

		in, images, confirm, err := h.readSubmission(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := validateStruct(in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		preset := requestPrompter(confirm)
		result, err := h.projects.Create(r.Context(), user.UserID, preset, in, images)
		if err != nil {
			h.responder.WriteError(w, withPending(preset, err))
			return
		}

		h.logger.Info().
			Str("projectID", result.Project.ID.String()).
			Str("userID", user.UserID.String()).
			Msg("project created")
		h.responder.WriteCreated(w, result)
	}
}

type submission struct {
	services.ProjectInput
	Confirm *bool `json:"confirm,omitempty"`
}

func (h projectHandler) readSubmission(w http.ResponseWriter, r *http.Request) (services.ProjectInput, []services.Image, *bool, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body submission
		if err := decodeJSON(r, &body); err != nil {
			return services.ProjectInput{}, nil, nil, err
		}
		return body.ProjectInput, nil, body.Confirm, nil

	case "multipart/form-data":
		if err := parseMultipart(w, r, h.maxUpload); err != nil {
			return services.ProjectInput{}, nil, nil, err
		}
		raw := r.FormValue("project")
		if raw == "" {
			return services.ProjectInput{}, nil, nil, errs.NewMissingRequiredFieldError("project")
		}
		var in services.ProjectInput
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			return services.ProjectInput{}, nil, nil, errs.NewInvalidJSONError(err)
		}
		confirm, err := formConfirm(r)
		if err != nil {
			return services.ProjectInput{}, nil, nil, err
		}
		images, err := formImages(r.MultipartForm)
		if err != nil {
			return services.ProjectInput{}, nil, nil, err
		}
		return in, images, confirm, nil
	}
	return services.ProjectInput{}, nil, nil, errs.NewUnsupportedMediaTypeError(mediaType, []string{"application/json", "multipart/form-data"})
}

// deleteProject removes a project and its images
// @Summary Delete project
// @Tags Projects
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} map[string]string
// @Failure 403 {object} ErrorResponse "Forbidden - not a member of the project"
// @Failure 404 {object} ErrorResponse
// @Router /project/{projectID} [delete]
func (h projectHandler) deleteProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user := ctxGetUser(r.Context())
		if err := h.projects.Delete(r.Context(), user.actor(), projectID); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, map[string]string{
			"status": "deleted",
			"id":     projectID.String(),
		})
	}
}

// uuidParam parses a UUID path parameter.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, errs.NewBadRequestError("missing " + name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.NewBadRequestError("invalid " + name)
	}
	return id, nil
}
