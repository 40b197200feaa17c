package api

import (
	"github.com/horizons-db/archive-backend/editor"
	"github.com/horizons-db/archive-backend/relations"
	"github.com/horizons-db/archive-backend/services"
	"github.com/horizons-db/archive-backend/storage"
	"github.com/horizons-db/archive-backend/taxonomy"
)

// initializeHandlers wires the core components once and shares them between handlers.
func initializeHandlers(rt router, store Store, objects storage.ObjectStore) *routeHandlers {
	gate := taxonomy.New(store)
	syncer := relations.New(store)

	projectOpts := []services.ProjectOption{services.WithClock(rt.now)}
	if rt.prepare != nil {
		projectOpts = append(projectOpts, services.WithImagePreparer(rt.prepare))
	}
	projects := services.NewProjectService(store, gate, syncer, objects, projectOpts...)
	invites := services.NewInviteService(store, rt.mailer, services.InviteOptions{
		Prefix:  rt.settings.InvitePrefix,
		TTL:     rt.settings.InviteTTL,
		SiteURL: rt.settings.SiteURL,
		Now:     rt.now,
	})

	deps := editor.Deps{
		Store:   store,
		Gate:    gate,
		Sync:    syncer,
		Objects: objects,
		Prepare: rt.prepare,
		Now:     rt.now,
	}
	sessions := newSessionRegistry(rt.settings.EditSessionTTL, rt.now)
	maxUpload := int64(rt.settings.MaxUploadMB) << 20

	return &routeHandlers{
		projectHandler: newProjectHandler(projects, maxUpload),
		catalogHandler: newCatalogHandler(gate, store),
		editHandler:    newEditHandler(deps, sessions, maxUpload),
		inviteHandler:  newInviteHandler(invites),
	}
}
