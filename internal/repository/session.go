package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/orangehats/orangehats/internal/models"
)

var sessionColumns = []string{"id", "user_id", "token_hash", "expires_at", "created_at"}

type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	s.CreatedAt = time.Now().UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()

	_, err := exec(ctx, r.db, psq.Insert("sessions").Columns(sessionColumns...).Values(
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.CreatedAt,
	))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByTokenHash returns a session regardless of expiry, or nil if not found
func (r *SessionRepository) GetByTokenHash(ctx context.Context, hash string) (*models.Session, error) {
	s, err := getOne[models.Session](ctx, r.db, psq.Select(sessionColumns...).From("sessions").Where(squirrel.Eq{"token_hash": hash}))
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := exec(ctx, r.db, psq.Delete("sessions").Where(squirrel.Eq{"id": id})); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before now and returns how many were removed
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	sqlQuery, args, err := psq.Delete("sessions").Where(squirrel.Lt{"expires_at": now.UTC()}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
