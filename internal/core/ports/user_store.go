package ports

import (
	"context"

	"github.com/playeconomy/identity/internal/core/domain"
)

// UserStore is the durable record store for users and their role memberships.
// Every operation is atomic for a single record; there are no cross-record
// transactions.
type UserStore interface {
	// FindByID returns domain.ErrUserNotFound when no record has the id.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByEmail returns domain.ErrUserNotFound when no record has the email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)

	// Create reports OutcomeAlreadyExists when the email or user name is taken.
	Create(ctx context.Context, user *domain.User) (domain.WriteOutcome, error)
	// Update overwrites user name, email and balance. Returns domain.ErrUserNotFound
	// when the record is gone and domain.ErrUserExists when the new email is taken.
	Update(ctx context.Context, user *domain.User) error
	// Delete returns domain.ErrUserNotFound when the record is gone.
	Delete(ctx context.Context, id string) error

	ListRoles(ctx context.Context, userID string) ([]string, error)
	// AssignRole reports OutcomeAlreadyExists when the user already holds the role.
	AssignRole(ctx context.Context, userID, role string) (domain.WriteOutcome, error)
}

// RoleStore persists the append-only role set.
type RoleStore interface {
	// CreateRole reports OutcomeAlreadyExists when the role name is taken.
	CreateRole(ctx context.Context, name string) (domain.WriteOutcome, error)
}

// PasswordHasher is the credential-storage collaborator.
type PasswordHasher interface {
	Hash(password string) (string, error)
}
