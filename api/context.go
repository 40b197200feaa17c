package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/horizons-db/archive-backend/editor"
	"github.com/horizons-db/archive-backend/models"
)

type keyType string

const (
	userKey keyType = "user"
)

// authUser is the verified caller. Person is nil until the user redeems an invite.
type authUser struct {
	UserID uuid.UUID
	Email  string
	Person *models.Person
}

func (u *authUser) isAdmin() bool {
	return u != nil && u.Person.IsAdmin()
}

// actor describes the caller to the editor and project service.
func (u *authUser) actor() editor.Actor {
	a := editor.Actor{UserID: u.UserID, IsAdmin: u.isAdmin()}
	if u.Person != nil {
		a.PersonID = u.Person.ID
	}
	return a
}

// ctxWithUser adds the authenticated user to the context
func ctxWithUser(ctx context.Context, user *authUser) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// ctxGetUser retrieves the authenticated user; nil on public routes.
func ctxGetUser(ctx context.Context) *authUser {
	user, _ := ctx.Value(userKey).(*authUser)
	return user
}
