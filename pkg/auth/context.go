// Package auth carries the acting user through request contexts.
//
// There is no login flow: the acting user is taken from request headers and
// defaults to an anonymous actor. Services read it for provenance fields
// (created_by, comment authorship, team ownership).
//
//	func (s *Service) Create(ctx context.Context, ...) error {
//	    actor := auth.GetActor(ctx)
//	    item.CreatedBy = actor.ID
//	    // ...
//	}
package auth

import (
	"context"
	"fmt"

	"github.com/arqioly/arqioly/pkg/apperrors"
)

type contextKey string

// ActorKey is the context key for the acting user.
const ActorKey contextKey = "actor"

// AnonymousID is used when a request carries no user header.
const AnonymousID = "anonymous"

// Actor identifies the user performing an operation.
type Actor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Anonymous returns the actor used when none is supplied.
func Anonymous() Actor {
	return Actor{ID: AnonymousID, Name: "Anonymous"}
}

// IsAnonymous reports whether the actor is the anonymous fallback.
func (a Actor) IsAnonymous() bool {
	return a.ID == "" || a.ID == AnonymousID
}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor extracts the actor from the context.
// Returns the anonymous actor if none is set.
func GetActor(ctx context.Context) Actor {
	actor, ok := ctx.Value(ActorKey).(Actor)
	if !ok || actor.ID == "" {
		return Anonymous()
	}
	if actor.Name == "" {
		actor.Name = actor.ID
	}
	return actor
}

// RequireActor returns the actor or an apperrors.ErrForbidden error when the
// request is anonymous. Team ownership, joins and comment edits need it.
func RequireActor(ctx context.Context) (Actor, error) {
	actor := GetActor(ctx)
	if actor.IsAnonymous() {
		return Actor{}, fmt.Errorf("user identity required: %w", apperrors.ErrForbidden)
	}
	return actor, nil
}
