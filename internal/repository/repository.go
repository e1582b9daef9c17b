// Package repository defines the storage interfaces the service layer
// depends on. The concrete implementation lives in repository/mongo; tests
// substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/pastebin/internal/model"
)

// UserRepository owns the UserRecord lifecycle: created at registration,
// mutated once at confirmation, never deleted by this system.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByConfirmationToken(ctx context.Context, token string) (*model.User, error)
	// Activate sets is_active=true and clears the confirmation token for the
	// user currently holding that token. Returns apperror.ErrInvalidToken if
	// no such user exists (the token was already used, or never issued).
	Activate(ctx context.Context, token string) error
}

// SlotRepository owns the free identifier pool.
type SlotRepository interface {
	Insert(ctx context.Context, slot *model.Slot) error
	// ConsumeOne atomically removes an arbitrary slot and returns its
	// identifier. No ordering is guaranteed. Returns
	// apperror.ErrPoolExhausted when the pool is empty.
	//
	// Atomicity is the load-bearing part of this contract: two concurrent
	// callers must never receive the same identifier.
	ConsumeOne(ctx context.Context) (string, error)
}

// MessageRepository owns the permanent message records. It only reads an
// identifier once, at bind time; slot lifecycle belongs to SlotRepository.
type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id string) (*model.Message, error)
	// ListAll returns every message in the store's natural order. The order
	// is unspecified and callers must not rely on it.
	ListAll(ctx context.Context) ([]model.Message, error)
}
