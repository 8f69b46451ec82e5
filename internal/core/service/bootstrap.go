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

// DefaultAdminGil is the starting balance of the seeded administrator.
const DefaultAdminGil int64 = 100

// SeedSettings describes the administrative account ensured at startup.
type SeedSettings struct {
	AdminEmail    string
	AdminPassword string
	AdminGil      int64
	Roles         []string
}

// BootstrapResult summarises what a bootstrap run found and changed.
type BootstrapResult struct {
	Admin        *domain.User
	RoleOutcomes map[string]domain.WriteOutcome
	AdminOutcome domain.WriteOutcome
	RoleAssigned domain.WriteOutcome
	SyncErr      error
}

// Bootstrapper ensures the role set and the administrator exist. It is safe
// to run repeatedly and concurrently with peer instances sharing the store:
// "already exists" answers count as success, anything else is fatal.
type Bootstrapper struct {
	users     ports.UserStore
	roles     ports.RoleStore
	publisher ports.EventPublisher
	hasher    ports.PasswordHasher
	settings  SeedSettings
	logger    zerolog.Logger
}

func NewBootstrapper(
	users ports.UserStore,
	roles ports.RoleStore,
	publisher ports.EventPublisher,
	hasher ports.PasswordHasher,
	settings SeedSettings,
	logger zerolog.Logger,
) *Bootstrapper {
	if len(settings.Roles) == 0 {
		settings.Roles = domain.DefaultRoles
	}
	return &Bootstrapper{
		users:     users,
		roles:     roles,
		publisher: publisher,
		hasher:    hasher,
		settings:  settings,
		logger:    logger.With().Str("component", "bootstrap").Logger(),
	}
}

// Run executes the full bootstrap. A returned error means startup must abort.
// Failing to announce the administrator is not fatal and is reported in
// BootstrapResult.SyncErr.
func (b *Bootstrapper) Run(ctx context.Context) (*BootstrapResult, error) {
	if strings.TrimSpace(b.settings.AdminEmail) == "" {
		return nil, errors.New("bootstrap: admin email is required")
	}

	result := &BootstrapResult{RoleOutcomes: make(map[string]domain.WriteOutcome, len(b.settings.Roles))}

	for _, role := range b.settings.Roles {
		outcome, err := b.EnsureRole(ctx, role)
		if err != nil {
			return nil, err
		}
		result.RoleOutcomes[role] = outcome
	}

	admin, outcome, err := b.EnsureAdminUser(ctx, b.settings.AdminEmail, b.settings.AdminPassword, b.settings.AdminGil)
	if err != nil {
		return nil, err
	}
	result.Admin = admin
	result.AdminOutcome = outcome

	assigned, err := b.EnsureAdminRoleMembership(ctx, admin)
	if err != nil {
		return nil, err
	}
	result.RoleAssigned = assigned

	// Announce unconditionally so consumers are refreshed even when nothing changed.
	if err := b.publisher.Publish(ctx, domain.NewUserUpdated(admin)); err != nil {
		result.SyncErr = err
		b.logger.Warn().Err(err).Str("user_id", admin.ID).Msg("admin sync event not queued")
	}

	b.logger.Info().
		Str("admin_email", admin.Email).
		Str("admin_outcome", outcome.String()).
		Str("membership", assigned.String()).
		Strs("roles", admin.Roles).
		Msg("bootstrap complete")

	return result, nil
}

// EnsureRole creates name unless it already exists.
func (b *Bootstrapper) EnsureRole(ctx context.Context, name string) (domain.WriteOutcome, error) {
	outcome, err := b.roles.CreateRole(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("bootstrap: create role %s: %w", name, err)
	}
	b.logger.Debug().Str("role", name).Str("outcome", outcome.String()).Msg("role ensured")
	return outcome, nil
}

// EnsureAdminUser returns the administrator, creating it when absent. A
// duplicate reported by the store means a peer won the race; the peer's record
// is re-read and used.
func (b *Bootstrapper) EnsureAdminUser(ctx context.Context, email, password string, gil int64) (*domain.User, domain.WriteOutcome, error) {
	existing, err := b.users.FindByEmail(ctx, email)
	if err == nil {
		return existing, domain.OutcomeAlreadyExists, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, 0, fmt.Errorf("bootstrap: find admin user: %w", err)
	}

	if gil < 0 {
		return nil, 0, fmt.Errorf("bootstrap: admin balance: %w", domain.ErrInvalidBalance)
	}

	hash, err := b.hasher.Hash(password)
	if err != nil {
		return nil, 0, fmt.Errorf("bootstrap: hash admin password: %w", err)
	}

	admin := &domain.User{
		ID:             uuid.NewString(),
		UserName:       email,
		Email:          email,
		EmailConfirmed: true,
		PasswordHash:   hash,
		Gil:            gil,
		CreatedOn:      time.Now().UTC(),
	}

	outcome, err := b.users.Create(ctx, admin)
	if err != nil {
		return nil, 0, fmt.Errorf("bootstrap: create admin user: %w", err)
	}
	if outcome == domain.OutcomeCreated {
		return admin, outcome, nil
	}

	winner, err := b.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, 0, fmt.Errorf("bootstrap: reload admin user: %w", err)
	}
	return winner, outcome, nil
}

// EnsureAdminRoleMembership puts admin in the Admin role unless it already is.
func (b *Bootstrapper) EnsureAdminRoleMembership(ctx context.Context, admin *domain.User) (domain.WriteOutcome, error) {
	roles, err := b.users.ListRoles(ctx, admin.ID)
	if err != nil {
		return 0, fmt.Errorf("bootstrap: list admin roles: %w", err)
	}
	admin.Roles = roles
	if admin.HasRole(domain.RoleAdmin) {
		return domain.OutcomeAlreadyExists, nil
	}

	outcome, err := b.users.AssignRole(ctx, admin.ID, domain.RoleAdmin)
	if err != nil {
		return 0, fmt.Errorf("bootstrap: add admin to role: %w", err)
	}
	if !admin.HasRole(domain.RoleAdmin) {
		admin.Roles = append(admin.Roles, domain.RoleAdmin)
	}
	return outcome, nil
}
