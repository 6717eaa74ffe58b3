// Package auth contains hand-written test doubles for the auth ports.
// These carry state across calls (session events, profile rows), which
// suits the listener and reconciler tests better than codegen mocks.
package auth

import (
	"context"
	"errors"
	"sync"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*FakeIdentityProvider)(nil)
	_ ports.SessionStore     = (*MemorySessionStore)(nil)
	_ ports.ProfileStore     = (*MemoryProfileStore)(nil)
	_ ports.SSOProvider      = (*FakeSSOProvider)(nil)
	_ ports.RoleMapper       = (RoleMapFunc)(nil)
)

// FakeIdentityProvider is a scriptable identity provider. Each
// operation delegates to the corresponding Func field; unset fields
// fall back to benign defaults. The embedded Broadcaster gives tests a
// real Publish/Subscribe path.
type FakeIdentityProvider struct {
	domainauth.Broadcaster

	SignUpFunc         func(ctx context.Context, in ports.SignUpInput) (domainauth.Identity, error)
	SignInFunc         func(ctx context.Context, in ports.SignInInput) (domainauth.Identity, error)
	SignOutFunc        func(ctx context.Context) error
	CurrentSessionFunc func(ctx context.Context) (*domainauth.Identity, error)
	UpdateMetadataFunc func(ctx context.Context, md domainauth.Metadata) (domainauth.Identity, error)
}

func (f *FakeIdentityProvider) SignUp(ctx context.Context, in ports.SignUpInput) (domainauth.Identity, error) {
	if f.SignUpFunc != nil {
		return f.SignUpFunc(ctx, in)
	}
	return domainauth.Identity{UserID: "fake-user", Email: in.Email, Metadata: in.Metadata}, nil
}

func (f *FakeIdentityProvider) SignIn(ctx context.Context, in ports.SignInInput) (domainauth.Identity, error) {
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, in)
	}
	return domainauth.Identity{UserID: "fake-user", Email: in.Email}, nil
}

func (f *FakeIdentityProvider) SignOut(ctx context.Context) error {
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx)
	}
	return nil
}

func (f *FakeIdentityProvider) CurrentSession(ctx context.Context) (*domainauth.Identity, error) {
	if f.CurrentSessionFunc != nil {
		return f.CurrentSessionFunc(ctx)
	}
	return nil, nil
}

func (f *FakeIdentityProvider) UpdateMetadata(ctx context.Context, md domainauth.Metadata) (domainauth.Identity, error) {
	if f.UpdateMetadataFunc != nil {
		return f.UpdateMetadataFunc(ctx, md)
	}
	return domainauth.Identity{UserID: "fake-user", Metadata: md}, nil
}

// ErrSessionNotFound is returned by MemorySessionStore.Get for unknown IDs.
var ErrSessionNotFound = errors.New("session not found")

// MemorySessionStore keeps sessions in a map. Safe for concurrent use.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore constructs an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (s *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domainauth.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// DeleteByUser removes all sessions belonging to userID and reports
// how many were removed.
func (s *MemorySessionStore) DeleteByUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports how many sessions are currently stored.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// MemoryProfileStore keeps profile rows in a map keyed by user ID. It
// honours the ProfileStore error contract: GetByID on a missing row
// returns ports.ErrProfileNotFound, a duplicate Insert returns
// ports.ErrProfileExists.
type MemoryProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile

	// Hooks let tests inject failures on specific calls.
	GetErr    error
	InsertErr error
}

// NewMemoryProfileStore constructs an empty in-memory profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]*model.Profile)}
}

// Put stores a pre-built profile row, bypassing the Insert contract.
func (s *MemoryProfileStore) Put(p *model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

func (s *MemoryProfileStore) GetByID(_ context.Context, id string) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, ports.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryProfileStore) Insert(_ context.Context, req *model.CreateProfileRequest) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return nil, s.InsertErr
	}
	if _, exists := s.profiles[req.ID]; exists {
		return nil, ports.ErrProfileExists
	}
	p := &model.Profile{
		ID:          req.ID,
		Email:       req.Email,
		Role:        req.Role,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
	}
	s.profiles[req.ID] = p
	cp := *p
	return &cp, nil
}

func (s *MemoryProfileStore) UpdateByID(_ context.Context, id string, req model.UpdateProfileRequest) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ports.ErrProfileNotFound
	}
	if req.DisplayName != nil {
		p.DisplayName = req.DisplayName
	}
	if req.Phone != nil {
		p.Phone = req.Phone
	}
	cp := *p
	return &cp, nil
}

// FakeSSOProvider is a scriptable corporate IdP.
type FakeSSOProvider struct {
	BeginFunc    func(ctx context.Context, in ports.SSOBeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.SSOExchangeInput) (ports.SSOIdentity, error)
}

func (f *FakeSSOProvider) Begin(ctx context.Context, in ports.SSOBeginInput) (string, string, string, error) {
	if f.BeginFunc != nil {
		return f.BeginFunc(ctx, in)
	}
	return "https://idp.example/authorize", "state-1", "nonce-1", nil
}

func (f *FakeSSOProvider) Exchange(ctx context.Context, in ports.SSOExchangeInput) (ports.SSOIdentity, error) {
	if f.ExchangeFunc != nil {
		return f.ExchangeFunc(ctx, in)
	}
	return ports.SSOIdentity{UserID: "staff-1", Email: "staff@example.com"}, nil
}

// RoleMapFunc adapts a func to ports.RoleMapper.
type RoleMapFunc func(email string, groups []string) domainauth.Role

func (f RoleMapFunc) Map(email string, groups []string) domainauth.Role {
	return f(email, groups)
}
