package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/apocalipssi/docanalyzer/internal/database"
	"github.com/apocalipssi/docanalyzer/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrDuplicateEmail is returned when registering an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrWeakPassword is returned when the password fails the policy.
	ErrWeakPassword = errors.New("password does not satisfy the password policy")
	// ErrInvalidEmail is returned when the email address is malformed.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrNotFound indicates no user has the given email. Handlers must
	// surface it identically to ErrBadCredentials.
	ErrNotFound = errors.New("user not found")
	// ErrBadCredentials indicates the password did not verify.
	ErrBadCredentials = errors.New("incorrect email or password")
	// ErrAccountDisabled indicates the account exists but is disabled.
	ErrAccountDisabled = errors.New("this account has been disabled")
)

// emailPattern: letters/digits/._%+- local part, letters/digits/.- domain,
// 2+ letter final label.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// CredentialService owns user records: registration and login validation.
// No other component writes users.
type CredentialService struct {
	users       database.UserRepositoryInterface
	minPassword int
	logger      *zap.Logger
}

// NewCredentialService creates a credential service.
func NewCredentialService(users database.UserRepositoryInterface, minPasswordLength int, logger *zap.Logger) *CredentialService {
	if minPasswordLength <= 0 {
		minPasswordLength = 8
	}
	return &CredentialService{users: users, minPassword: minPasswordLength, logger: logger}
}

// ValidEmail reports whether the email matches the accepted format.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// CheckPasswordPolicy validates the password against the policy:
// minimum length, at least one uppercase ASCII letter, one lowercase
// ASCII letter and one decimal digit. No special-character requirement.
func (s *CredentialService) CheckPasswordPolicy(password string) error {
	// Character count, not bytes: multibyte characters count once
	if utf8.RuneCountInString(password) < s.minPassword {
		return ErrWeakPassword
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case unicode.IsDigit(r) && r <= '9':
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return ErrWeakPassword
	}

	return nil
}

// Register creates a new user with a freshly computed credential hash.
// Registering an existing email returns ErrDuplicateEmail and leaves the
// first user's record untouched.
func (s *CredentialService) Register(ctx context.Context, email, password, displayName string) (uuid.UUID, error) {
	email = strings.TrimSpace(email)

	if !ValidEmail(email) {
		return uuid.Nil, ErrInvalidEmail
	}
	if err := s.CheckPasswordPolicy(password); err != nil {
		return uuid.Nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return uuid.Nil, ErrDuplicateEmail
	}

	hash, err := HashPassword(password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		CreatedAt:    time.Now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return uuid.Nil, fmt.Errorf("failed to register user: %w", err)
	}

	return user.ID, nil
}

// Authenticate verifies the credentials and, on success, updates the
// user's last_login timestamp. Authentication is therefore not
// idempotent. The returned user has its password hash cleared.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil || user == nil {
		return nil, ErrNotFound
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrBadCredentials
	}

	if user.Disabled {
		return nil, ErrAccountDisabled
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		// Login still succeeds; the stale timestamp is not worth failing over.
		if s.logger != nil {
			s.logger.Warn("failed_to_update_last_login",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		}
	}

	now := time.Now()
	user.LastLogin = &now
	user.PasswordHash = ""

	return user, nil
}
