package ports

import (
	"context"

	"github.com/playeconomy/identity/internal/core/domain"
)

// CreateUserInput carries the fields an administrator supplies for a new account.
type CreateUserInput struct {
	Email    string
	Password string
	Gil      int64
}

// UpdateUserInput carries the overwritable fields of a user. Email also
// becomes the login name.
type UpdateUserInput struct {
	Email string
	Gil   int64
}

// MutationResult is returned by every committed mutation. The store write is
// authoritative: a failed hand-off to the publisher sets SyncDegraded instead
// of failing the call.
type MutationResult struct {
	User         *domain.User
	Event        domain.SyncEvent
	SyncDegraded bool
	SyncErr      error
}

// UserService is the Mutation Gateway: the only path that creates, updates or
// deletes user records.
type UserService interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	RolesByEmail(ctx context.Context, email string) ([]string, error)

	CreateUser(ctx context.Context, in CreateUserInput) (*MutationResult, error)
	UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*MutationResult, error)
	DeleteUser(ctx context.Context, id string) (*MutationResult, error)
}
