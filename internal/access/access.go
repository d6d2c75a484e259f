// Package access decides who may run an operation and on what.
//
// Operations are wrapped by an ordered chain of interceptors. The usual chain
// for a mutation is Authenticate, then a transaction, then Authorize for the
// target entity, then the operation itself. Authenticate must come first: an
// anonymous caller never reaches a lookup, so it cannot learn whether an id
// exists.
package access

import (
	"context"

	"github.com/google/uuid"

	"blog/internal/models"
)

// Call is the explicit per-request state threaded through a chain.
type Call struct {
	// Actor is the resolved current user, nil when anonymous.
	Actor *models.User
	// Tx is the store handle for this call; interceptors may replace it.
	Tx models.DBTX
}

type Operation func(ctx context.Context, call *Call) error

type Interceptor func(next Operation) Operation

// Chain wraps op so that interceptors run in the order given, the first one
// outermost.
func Chain(op Operation, interceptors ...Interceptor) Operation {
	for i := len(interceptors) - 1; i >= 0; i-- {
		op = interceptors[i](op)
	}
	return op
}

// Authenticate stops the chain with ErrUnauthenticated when nobody is
// logged in.
func Authenticate(next Operation) Operation {
	return func(ctx context.Context, call *Call) error {
		if call.Actor == nil {
			return models.ErrUnauthenticated
		}
		return next(ctx, call)
	}
}

// Owned is content with an author.
type Owned interface {
	OwnerID() uuid.UUID
}

// CanMutate reports whether actor may change or remove entity.
func CanMutate(entity Owned, actor *models.User) bool {
	return actor != nil && entity.OwnerID() == actor.ID
}

// Finder loads one entity. It returns an error wrapping models.ErrNotFound
// when the entity does not exist.
type Finder[T Owned] func(ctx context.Context, call *Call) (T, error)

// Resolve loads an entity and, when checkOwnership is set, requires the
// caller to own it. Existence is checked first: a missing entity is always
// ErrNotFound, never ErrForbidden.
func Resolve[T Owned](ctx context.Context, call *Call, find Finder[T], checkOwnership bool) (T, error) {
	var zero T
	entity, err := find(ctx, call)
	if err != nil {
		return zero, err
	}
	if checkOwnership && !CanMutate(entity, call.Actor) {
		return zero, models.ErrForbidden
	}
	return entity, nil
}

// Authorize resolves the target with ownership enforced and hands it to bind
// before next runs.
func Authorize[T Owned](find Finder[T], bind func(T)) Interceptor {
	return func(next Operation) Operation {
		return func(ctx context.Context, call *Call) error {
			entity, err := Resolve(ctx, call, find, true)
			if err != nil {
				return err
			}
			bind(entity)
			return next(ctx, call)
		}
	}
}
