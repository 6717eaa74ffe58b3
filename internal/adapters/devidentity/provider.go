package devidentity

// Package devidentity provides an in-process identity provider for
// local development. Accounts live in memory, passwords are verified
// with bcrypt, and events flow through the same broadcaster the hosted
// client uses, so the rest of the stack cannot tell the difference.

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

const defaultSessionDuration = 8 * time.Hour

// Config controls the dev identity provider.
type Config struct {
	// SessionDuration is the lifetime of issued sessions. Default 8h.
	SessionDuration time.Duration
	// Seed accounts registered at startup. Key is email, value is the
	// plaintext password. Intended for docker-compose style local setups.
	Seed map[string]string
}

type account struct {
	id       string
	email    string
	hash     []byte
	metadata domainauth.Metadata
}

// Provider implements ports.IdentityProvider entirely in memory.
type Provider struct {
	domainauth.Broadcaster

	sessionDuration time.Duration

	mu       sync.Mutex
	accounts map[string]*account // keyed by lowercase email
	current  *domainauth.Identity
}

// NewProvider constructs a dev identity provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = defaultSessionDuration
	}

	p := &Provider{
		sessionDuration: dur,
		accounts:        make(map[string]*account),
	}
	for email, password := range cfg.Seed {
		if _, err := p.register(email, password, domainauth.Metadata{}); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Provider) register(email, password string, md domainauth.Metadata) (*account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("devidentity: email is required")
	}
	if password == "" {
		return nil, errors.New("devidentity: password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	acct := &account{
		id:       uuid.NewString(),
		email:    email,
		hash:     hash,
		metadata: md,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.accounts[email]; exists {
		return nil, &ports.CredentialError{
			Kind:    ports.CredentialExists,
			Message: "an account with this email already exists",
		}
	}
	p.accounts[email] = acct
	return acct, nil
}

// SignUp registers a new account and signs it in immediately. Dev mode
// has no email confirmation step.
func (p *Provider) SignUp(ctx context.Context, in ports.SignUpInput) (domainauth.Identity, error) {
	acct, err := p.register(in.Email, in.Password, in.Metadata)
	if err != nil {
		return domainauth.Identity{}, err
	}
	return p.startSession(acct), nil
}

// SignIn verifies the password against the stored bcrypt hash.
func (p *Provider) SignIn(_ context.Context, in ports.SignInInput) (domainauth.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	p.mu.Lock()
	acct := p.accounts[email]
	p.mu.Unlock()

	if acct == nil {
		return domainauth.Identity{}, &ports.CredentialError{
			Kind:    ports.CredentialInvalid,
			Message: "invalid email or password",
		}
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(in.Password)); err != nil {
		return domainauth.Identity{}, &ports.CredentialError{
			Kind:    ports.CredentialInvalid,
			Message: "invalid email or password",
			Cause:   err,
		}
	}
	return p.startSession(acct), nil
}

// SignOut drops the current session and emits a signed-out event.
func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()

	p.Publish(domainauth.Event{Kind: domainauth.EventSignedOut})
	return nil
}

// CurrentSession returns the active identity, if any.
func (p *Provider) CurrentSession(_ context.Context) (*domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil, nil
	}
	if time.Now().After(p.current.ExpiresAt) {
		p.current = nil
		return nil, nil
	}
	ident := *p.current
	return &ident, nil
}

// UpdateMetadata amends the signed-in account's metadata bag.
func (p *Provider) UpdateMetadata(_ context.Context, md domainauth.Metadata) (domainauth.Identity, error) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return domainauth.Identity{}, &ports.CredentialError{
			Kind:    ports.CredentialOther,
			Message: "no active session",
		}
	}
	acct := p.accounts[p.current.Email]
	if acct != nil {
		acct.metadata = md
	}
	p.current.Metadata = md
	ident := *p.current
	p.mu.Unlock()

	p.Publish(domainauth.Event{Kind: domainauth.EventUserUpdated, Identity: &ident})
	return ident, nil
}

func (p *Provider) startSession(acct *account) domainauth.Identity {
	ident := domainauth.Identity{
		UserID:    acct.id,
		Email:     acct.email,
		Metadata:  acct.metadata,
		ExpiresAt: time.Now().Add(p.sessionDuration),
	}

	p.mu.Lock()
	p.current = &ident
	p.mu.Unlock()

	p.Publish(domainauth.Event{Kind: domainauth.EventSignedIn, Identity: &ident})
	return ident
}
