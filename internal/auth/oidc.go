package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/orangehats/orangehats/internal/config"
)

// stateTTL bounds how long a login round trip through the provider may take
const stateTTL = 5 * time.Minute

var (
	ErrInvalidState  = errors.New("invalid or expired OIDC state")
	ErrGroupDenied   = errors.New("user not in allowed groups")
	ErrMissingClaims = errors.New("id_token carries no usable identity")
)

// OIDCProvider performs the authorization code flow against an external
// identity provider
type OIDCProvider struct {
	config   *config.OIDCConfig
	oauth2   oauth2.Config
	verifier *oidc.IDTokenVerifier

	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

// ExternalUser is the identity asserted by a verified id_token
type ExternalUser struct {
	Email  string
	Name   string
	Groups []string
}

// Username is the admin account name the external user maps to
func (u *ExternalUser) Username() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Name
}

// NewOIDCProvider discovers the provider. It returns nil when OIDC is disabled.
func NewOIDCProvider(ctx context.Context, cfg *config.OIDCConfig) (*OIDCProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCProvider{
		config: cfg,
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       cfg.Scopes,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		states:   make(map[string]time.Time),
		now:      time.Now,
	}, nil
}

// AuthCodeURL returns the provider redirect and the state bound to it
func (p *OIDCProvider) AuthCodeURL() (string, string, error) {
	state, err := newToken()
	if err != nil {
		return "", "", err
	}

	p.mu.Lock()
	p.prune()
	p.states[state] = p.now().Add(stateTTL)
	p.mu.Unlock()

	return p.oauth2.AuthCodeURL(state), state, nil
}

// consumeState accepts each issued state exactly once
func (p *OIDCProvider) consumeState(state string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	expires, ok := p.states[state]
	if !ok {
		return false
	}
	delete(p.states, state)
	return p.now().Before(expires)
}

// prune drops expired states. Callers hold p.mu.
func (p *OIDCProvider) prune() {
	now := p.now()
	for s, exp := range p.states {
		if !now.Before(exp) {
			delete(p.states, s)
		}
	}
}

// Exchange completes the flow and returns the verified user
func (p *OIDCProvider) Exchange(ctx context.Context, state, code string) (*ExternalUser, error) {
	if !p.consumeState(state) {
		return nil, ErrInvalidState
	}

	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id_token: %w", err)
	}

	var claims struct {
		Email         string   `json:"email"`
		EmailVerified bool     `json:"email_verified"`
		Name          string   `json:"name"`
		Groups        []string `json:"groups"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	if !p.groupAllowed(claims.Groups) {
		return nil, ErrGroupDenied
	}

	u := &ExternalUser{Name: claims.Name, Groups: claims.Groups}
	if claims.EmailVerified {
		u.Email = claims.Email
	}
	if u.Username() == "" {
		return nil, ErrMissingClaims
	}
	return u, nil
}

func (p *OIDCProvider) groupAllowed(groups []string) bool {
	if len(p.config.AllowedGroups) == 0 {
		return true
	}
	for _, g := range groups {
		if slices.Contains(p.config.AllowedGroups, g) {
			return true
		}
	}
	return false
}
