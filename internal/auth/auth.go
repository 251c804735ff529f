// Package auth manages admin accounts and the server-side sessions that
// guard the admin API.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/orangehats/orangehats/internal/models"
	"github.com/orangehats/orangehats/internal/repository"
)

// Account sources
const (
	SourceLocal = "local"
	SourceOIDC  = "oidc"
)

// MinPasswordLength is enforced when a password is set
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionExpired     = errors.New("session expired")
	ErrNoSession          = errors.New("no valid session")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// Session is an issued session. Token is only known at issue time; the
// store keeps its SHA-256 hash.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *models.User
}

type Manager struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewManager(users *repository.UserRepository, sessions *repository.SessionRepository, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger.With("component", "auth"),
		now:      time.Now,
	}
}

// HashToken returns the stored form of a session token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login checks local credentials and issues a session
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := m.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || u.AuthSource != SourceLocal || u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		m.logger.Warn("failed login", "username", username)
		return nil, ErrInvalidCredentials
	}

	return m.issue(ctx, u)
}

// LoginExternal issues a session for a user authenticated elsewhere,
// creating the account on first login
func (m *Manager) LoginExternal(ctx context.Context, username string) (*Session, error) {
	u, err := m.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u = &models.User{Username: username, AuthSource: SourceOIDC}
		if err := m.users.Create(ctx, u); err != nil {
			return nil, err
		}
		m.logger.Info("created user from OIDC login", "username", username)
	}

	return m.issue(ctx, u)
}

func (m *Manager) issue(ctx context.Context, u *models.User) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	s := &models.Session{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		TokenHash: HashToken(token),
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, err
	}

	m.logger.Info("session issued", "username", u.Username, "source", u.AuthSource)
	return &Session{Token: token, ExpiresAt: s.ExpiresAt, User: u}, nil
}

// Verify resolves a session token to its identity. Expired sessions are
// deleted on sight.
func (m *Manager) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	s, err := m.sessions.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNoSession
	}
	if !m.now().Before(s.ExpiresAt) {
		if err := m.sessions.Delete(ctx, s.ID); err != nil {
			m.logger.Warn("failed to delete expired session", "error", err)
		}
		return nil, ErrSessionExpired
	}

	u, err := m.users.GetByID(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNoSession
	}

	return &Identity{SessionID: s.ID, User: u, ExpiresAt: s.ExpiresAt}, nil
}

// Logout ends the session of token. An unknown token is not an error.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	s, err := m.sessions.GetByTokenHash(ctx, HashToken(token))
	if err != nil || s == nil {
		return err
	}
	return m.sessions.Delete(ctx, s.ID)
}

// CleanupExpired deletes sessions past their expiry
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx, m.now())
}

func (m *Manager) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	existing, err := m.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", username, ErrUserExists)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &models.User{Username: username, PasswordHash: hash, AuthSource: SourceLocal}
	if err := m.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (m *Manager) SetPassword(ctx context.Context, username, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	ok, err := m.users.SetPassword(ctx, username, hash)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", username, ErrUserNotFound)
	}
	return nil
}

func (m *Manager) DeleteUser(ctx context.Context, username string) error {
	ok, err := m.users.Delete(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", username, ErrUserNotFound)
	}
	return nil
}

func (m *Manager) ListUsers(ctx context.Context) ([]models.User, error) {
	return m.users.List(ctx)
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
