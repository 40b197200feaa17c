package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// setupPublicRoutes registers the read-only archive browsing routes.
func setupPublicRoutes(r chi.Router, handlers *routeHandlers, startupTime time.Time) {
	r.Get("/health", healthHandler(startupTime))

	r.Get("/projects", handlers.projectHandler.getAllProjects())
	r.Get("/project/{projectID}", handlers.projectHandler.getProject())

	r.Get("/keywords", handlers.catalogHandler.getKeywords())
	r.Get("/genres", handlers.catalogHandler.getGenres())
	r.Get("/institutions", handlers.catalogHandler.getInstitutions())
	r.Get("/people", handlers.catalogHandler.getPeople())
}

// setupMemberRoutes registers routes that need a verified token. Everything
// except redeeming an invite also needs an archive profile.
func setupMemberRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.authenticate)

		r.Post("/invites/redeem", handlers.inviteHandler.redeemInvite())

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.requireMember)

			r.Post("/project", handlers.projectHandler.createProject())
			r.Delete("/project/{projectID}", handlers.projectHandler.deleteProject())
			r.Post("/project/{projectID}/edit", handlers.editHandler.beginEdit())

			r.Route("/edit/{sessionID}", func(r chi.Router) {
				r.Get("/", handlers.editHandler.getSession())
				r.Patch("/fields", handlers.editHandler.setFields())
				r.Post("/tags/{kind}", handlers.editHandler.addTag())
				r.Delete("/tags/{kind}/{value}", handlers.editHandler.removeTag())
				r.Post("/images", handlers.editHandler.stageImages())
				r.Delete("/images", handlers.editHandler.unstageImage())
				r.Post("/save", handlers.editHandler.save())
				r.Post("/cancel", handlers.editHandler.cancel())
			})
		})
	})
}

func setupAdminRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authMiddleware.authenticate)
		r.Use(authMiddleware.requireAdmin)

		r.Get("/invites", handlers.inviteHandler.getInvites())
		r.Post("/invites", handlers.inviteHandler.createInvite())
		r.Patch("/invites/{inviteID}", handlers.inviteHandler.updateInvite())
		r.Delete("/invites/{inviteID}", handlers.inviteHandler.deleteInvite())

		r.Get("/keywords", handlers.catalogHandler.getKeywordCatalog())
		r.Delete("/keywords/{value}", handlers.catalogHandler.deleteKeyword())
		r.Post("/genres", handlers.catalogHandler.addGenre())
		r.Delete("/genres/{value}", handlers.catalogHandler.deleteGenre())
	})
}

func healthHandler(startupTime time.Time) http.HandlerFunc {
	responder := NewResponder(log.With().Str("handlerName", "health").Logger())
	return func(w http.ResponseWriter, r *http.Request) {
		responder.WriteJSON(w, map[string]interface{}{
			"status":    "ok",
			"startedAt": startupTime.UTC().Format(time.RFC3339),
			"uptime":    time.Since(startupTime).Round(time.Second).String(),
		})
	}
}
