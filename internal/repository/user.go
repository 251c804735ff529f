package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/orangehats/orangehats/internal/models"
)

var userColumns = []string{"id", "username", "password_hash", "auth_source", "created_at", "updated_at"}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	u.ID = uuid.New().String()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	if u.AuthSource == "" {
		u.AuthSource = "local"
	}

	_, err := exec(ctx, r.db, psq.Insert("users").Columns(userColumns...).Values(
		u.ID, u.Username, u.PasswordHash, u.AuthSource, u.CreatedAt, u.UpdatedAt,
	))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByUsername returns a user, or nil if not found
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := getOne[models.User](ctx, r.db, psq.Select(userColumns...).From("users").Where(squirrel.Eq{"username": username}))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByID returns a user, or nil if not found
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := getOne[models.User](ctx, r.db, psq.Select(userColumns...).From("users").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	sqlQuery, args, err := psq.Select(userColumns...).From("users").OrderBy("username ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SetPassword replaces the password hash and reports whether the user exists
func (r *UserRepository) SetPassword(ctx context.Context, username, hash string) (bool, error) {
	ok, err := exec(ctx, r.db, psq.Update("users").
		Set("password_hash", hash).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"username": username}))
	if err != nil {
		return false, fmt.Errorf("failed to update password: %w", err)
	}
	return ok, nil
}

// Delete removes a user and, through the foreign key, their sessions
func (r *UserRepository) Delete(ctx context.Context, username string) (bool, error) {
	ok, err := exec(ctx, r.db, psq.Delete("users").Where(squirrel.Eq{"username": username}))
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return ok, nil
}
