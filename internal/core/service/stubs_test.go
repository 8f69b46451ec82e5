package service

import (
	"context"
	"sync"

	"github.com/playeconomy/identity/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stub store shared by gateway and bootstrap tests. A single mutex
// stands in for the store's per-record atomicity.
// ---------------------------------------------------------------------------

type stubUserStore struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	roles   map[string]struct{}
	ops     []string // ordered log of mutating calls
	findErr error
	saveErr error
	delErr  error
	// afterUpdate runs once after a successful Update, outside the lock, to
	// interleave a competing writer.
	afterUpdate func(s *stubUserStore)
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{
		byID:  make(map[string]*domain.User),
		roles: make(map[string]struct{}),
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]string(nil), u.Roles...)
	return &clone
}

func (s *stubUserStore) seed(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[u.ID] = cloneUser(u)
}

func (s *stubUserStore) get(id string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.byID[id])
}

func (s *stubUserStore) countByEmail(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.byID {
		if domain.Normalize(u.Email) == domain.Normalize(email) {
			n++
		}
	}
	return n
}

func (s *stubUserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *stubUserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.byID {
		if domain.Normalize(u.Email) == domain.Normalize(email) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubUserStore) List(_ context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (s *stubUserStore) Create(_ context.Context, user *domain.User) (domain.WriteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	for _, u := range s.byID {
		if domain.Normalize(u.Email) == domain.Normalize(user.Email) {
			return domain.OutcomeAlreadyExists, nil
		}
	}
	s.byID[user.ID] = cloneUser(user)
	s.ops = append(s.ops, "create:"+user.ID)
	return domain.OutcomeCreated, nil
}

func (s *stubUserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	if s.saveErr != nil {
		s.mu.Unlock()
		return s.saveErr
	}
	existing, ok := s.byID[user.ID]
	if !ok {
		s.mu.Unlock()
		return domain.ErrUserNotFound
	}
	existing.Email = user.Email
	existing.UserName = user.UserName
	existing.Gil = user.Gil
	s.ops = append(s.ops, "update:"+user.ID)
	hook := s.afterUpdate
	s.afterUpdate = nil
	s.mu.Unlock()

	if hook != nil {
		hook(s)
	}
	return nil
}

func (s *stubUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return s.delErr
	}
	if _, ok := s.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.byID, id)
	s.ops = append(s.ops, "delete:"+id)
	return nil
}

func (s *stubUserStore) ListRoles(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return append([]string(nil), u.Roles...), nil
}

func (s *stubUserStore) AssignRole(_ context.Context, userID, role string) (domain.WriteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	if u.HasRole(role) {
		return domain.OutcomeAlreadyExists, nil
	}
	u.Roles = append(u.Roles, role)
	return domain.OutcomeCreated, nil
}

func (s *stubUserStore) CreateRole(_ context.Context, name string) (domain.WriteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	key := domain.Normalize(name)
	if _, ok := s.roles[key]; ok {
		return domain.OutcomeAlreadyExists, nil
	}
	s.roles[key] = struct{}{}
	return domain.OutcomeCreated, nil
}

// ---------------------------------------------------------------------------
// Publisher / hasher stubs
// ---------------------------------------------------------------------------

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.SyncEvent
	err    error
	// store, when set, records a "publish:<user>" entry in the store op log so
	// tests can assert store-then-publish ordering.
	store *stubUserStore
}

func (p *stubPublisher) Publish(_ context.Context, e domain.SyncEvent) error {
	if p.store != nil {
		p.store.mu.Lock()
		p.store.ops = append(p.store.ops, "publish:"+e.UserID)
		p.store.mu.Unlock()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *stubPublisher) published() []domain.SyncEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.SyncEvent(nil), p.events...)
}

type stubHasher struct {
	err error
}

func (h stubHasher) Hash(password string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + password, nil
}
