// Package auth defines the authorization context passed into every core
// operation. Authorization is an explicit parameter, never ambient state:
// services receive an Actor and decide, handlers only extract it.
package auth

import "context"

// Role is the set of roles carried in the access token.
type Role string

const (
	RoleAttendee   Role = "attendee"
	RoleOrganizer  Role = "organizer"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAttendee, RoleOrganizer, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Elevated reports whether the role may act across events it does not own.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Actor identifies the authenticated caller of a core operation.
type Actor struct {
	UserID int64
	Role   Role
}

// CanScanEvent reports whether the actor may check in tickets for an event
// owned by organizerID.
func (a Actor) CanScanEvent(organizerID int64) bool {
	if a.Role.Elevated() {
		return true
	}
	return a.Role == RoleOrganizer && a.UserID == organizerID
}

// CanAccessBooking reports whether the actor may read or cancel a booking
// owned by ownerID.
func (a Actor) CanAccessBooking(ownerID int64) bool {
	return a.Role.Elevated() || a.UserID == ownerID
}

type ctxKey string

const actorKey ctxKey = "actor"

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext extracts the actor placed by the auth middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	v := ctx.Value(actorKey)
	if v == nil {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}
