package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/apocalipssi/docanalyzer/internal/models"
	"github.com/google/uuid"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user. The caller is responsible for hashing the
// password beforehand; plain passwords never reach this layer.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if !r.db.Connected() {
		return nil
	}

	query := `
		INSERT INTO users (id, email, password_hash, display_name, disabled, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Disabled,
		now,
		user.LastLogin,
	).Scan(&user.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email. Email matching is exact
// (case-sensitive as stored).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if !r.db.Connected() {
		return nil, nil
	}

	user := &models.User{}
	query := `
		SELECT id, email, password_hash, display_name, disabled, created_at, last_login
		FROM users
		WHERE email = $1
	`

	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Disabled,
		&user.CreatedAt,
		&user.LastLogin,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("email %s: %w", email, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if !r.db.Connected() {
		return nil, nil
	}

	user := &models.User{}
	query := `
		SELECT id, email, password_hash, display_name, disabled, created_at, last_login
		FROM users
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Disabled,
		&user.CreatedAt,
		&user.LastLogin,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("id %s: %w", id, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpdateLastLogin sets last_login to the current time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	if !r.db.Connected() {
		return nil
	}

	query := `UPDATE users SET last_login = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}
