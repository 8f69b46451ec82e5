package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/playeconomy/identity/internal/core/domain"
	"github.com/playeconomy/identity/internal/core/ports"
)

// UserService is the Mutation Gateway. Each mutation writes the store first
// and hands the derived sync event to the publisher only after the store has
// confirmed the write.
type UserService struct {
	store     ports.UserStore
	publisher ports.EventPublisher
	hasher    ports.PasswordHasher
	logger    zerolog.Logger
}

func NewUserService(store ports.UserStore, publisher ports.EventPublisher, hasher ports.PasswordHasher, logger zerolog.Logger) *UserService {
	return &UserService{
		store:     store,
		publisher: publisher,
		hasher:    hasher,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.store.List(ctx)
}

func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.store.FindByID(ctx, id)
}

func (s *UserService) RolesByEmail(ctx context.Context, email string) ([]string, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.store.ListRoles(ctx, user.ID)
}

// CreateUser stores a new confirmed account and announces it.
func (s *UserService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*ports.MutationResult, error) {
	if in.Gil < 0 {
		return nil, domain.ErrInvalidBalance
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("create user: hash password: %w", err)
	}

	email := strings.TrimSpace(in.Email)
	user := &domain.User{
		ID:             uuid.NewString(),
		UserName:       email,
		Email:          email,
		EmailConfirmed: true,
		PasswordHash:   hash,
		Gil:            in.Gil,
		CreatedOn:      time.Now().UTC(),
	}

	outcome, err := s.store.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if outcome == domain.OutcomeAlreadyExists {
		return nil, domain.ErrUserExists
	}

	return s.publish(ctx, "create", user, domain.NewUserUpdated(user)), nil
}

// UpdateUser overwrites email, login name and balance of an existing user.
func (s *UserService) UpdateUser(ctx context.Context, id string, in ports.UpdateUserInput) (*ports.MutationResult, error) {
	if in.Gil < 0 {
		return nil, domain.ErrInvalidBalance
	}

	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(in.Email)
	user.Email = email
	user.UserName = email
	user.Gil = in.Gil

	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}

	// The event carries the record as stored after the write, so concurrent
	// updates that enqueue out of store order still converge on the latest state.
	current, err := s.store.FindByID(ctx, id)
	switch {
	case err == nil:
		user = current
	case errors.Is(err, domain.ErrUserNotFound):
		// Deleted in between; the removal event is the last word for this user.
		s.logger.Info().Str("op", "update").Str("user_id", id).Msg("user removed before update was announced")
		return &ports.MutationResult{User: user}, nil
	default:
		s.logger.Warn().Err(err).Str("user_id", id).Msg("re-read after update failed, announcing written values")
	}

	return s.publish(ctx, "update", user, domain.NewUserUpdated(user)), nil
}

// DeleteUser removes the user and announces the removal with a zero balance,
// whatever the balance was at deletion time.
func (s *UserService) DeleteUser(ctx context.Context, id string) (*ports.MutationResult, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}

	return s.publish(ctx, "delete", user, domain.NewUserRemoved(user)), nil
}

// publish is only reached after the store confirmed the write. A failed
// hand-off degrades synchronization but never undoes the mutation.
func (s *UserService) publish(ctx context.Context, op string, user *domain.User, event domain.SyncEvent) *ports.MutationResult {
	result := &ports.MutationResult{User: user, Event: event}

	if err := s.publisher.Publish(ctx, event); err != nil {
		result.SyncDegraded = true
		result.SyncErr = err
		s.logger.Warn().
			Err(err).
			Str("op", op).
			Str("user_id", user.ID).
			Str("message_id", event.MessageID).
			Msg("user mutation committed, synchronization degraded")
		return result
	}

	s.logger.Info().
		Str("op", op).
		Str("user_id", user.ID).
		Int64("balance", event.Balance).
		Msg("user mutation committed")
	return result
}
