package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/apocalipssi/docanalyzer/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeUserRepo is an in-memory user repository for tests
type fakeUserRepo struct {
	users           map[string]*models.User
	lastLoginCalls  int
	failUpdateLogin bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, ok := f.users[user.Email]; ok {
		return fmt.Errorf("duplicate email")
	}
	copied := *user
	f.users[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	f.lastLoginCalls++
	if f.failUpdateLogin {
		return fmt.Errorf("update failed")
	}
	return nil
}

func TestCheckPasswordPolicy(t *testing.T) {
	t.Parallel()

	svc := NewCredentialService(newFakeUserRepo(), 8, zap.NewNop())

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Passw0rd", false},
		{"too short", "Passw0r", true},
		{"no digit", "Password", true},
		{"no upper", "passw0rd", true},
		{"no lower", "PASSW0RD", true},
		{"lowercase only", "password", true},
		{"upper and digit only", "PASSWORD1", true},
		{"longer valid", "CorrectHorse7Battery", false},
		// Multibyte characters count once, not per byte
		{"seven runes multibyte", "Pä55wör", true},
		{"eight runes multibyte", "Pä55wörd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := svc.CheckPasswordPolicy(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckPasswordPolicy(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrWeakPassword) {
				t.Errorf("expected ErrWeakPassword, got %v", err)
			}
		})
	}
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		email string
		want  bool
	}{
		{"a@b.co", true},
		{"user.name+tag@example.com", true},
		{"a@b", false},
		{"a.b", false},
		{"@example.com", false},
		{"user@", false},
		{"user@example.c", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			t.Parallel()

			if got := ValidEmail(tt.email); got != tt.want {
				t.Errorf("ValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewCredentialService(repo, 8, zap.NewNop())
	ctx := context.Background()

	userID, err := svc.Register(ctx, "alice@example.com", "Passw0rd", "Alice")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if userID == uuid.Nil {
		t.Fatal("Register() returned nil user id")
	}

	stored := repo.users["alice@example.com"]
	if stored == nil {
		t.Fatal("user was not stored")
	}
	if stored.PasswordHash == "Passw0rd" || stored.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}

	// Second registration with the same email must not mutate the first record
	firstHash := stored.PasswordHash
	if _, err := svc.Register(ctx, "alice@example.com", "Another1Pw", "Mallory"); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("duplicate Register() error = %v, want ErrDuplicateEmail", err)
	}
	if repo.users["alice@example.com"].PasswordHash != firstHash {
		t.Error("duplicate registration mutated the original record")
	}

	if _, err := svc.Register(ctx, "not-an-email", "Passw0rd", ""); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("invalid email Register() error = %v, want ErrInvalidEmail", err)
	}

	if _, err := svc.Register(ctx, "bob@example.com", "weak", ""); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password Register() error = %v, want ErrWeakPassword", err)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewCredentialService(repo, 8, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "Passw0rd", "Alice"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, err := svc.Authenticate(ctx, "alice@example.com", "Passw0rd")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Authenticate() email = %q", user.Email)
	}
	if user.PasswordHash != "" {
		t.Error("returned user must not carry the password hash")
	}
	if repo.lastLoginCalls != 1 {
		t.Errorf("UpdateLastLogin calls = %d, want 1", repo.lastLoginCalls)
	}

	if _, err := svc.Authenticate(ctx, "alice@example.com", "WrongPw1"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password error = %v, want ErrBadCredentials", err)
	}

	if _, err := svc.Authenticate(ctx, "nobody@example.com", "Passw0rd"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := NewCredentialService(repo, 8, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "Passw0rd", "Alice"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	repo.users["alice@example.com"].Disabled = true

	if _, err := svc.Authenticate(ctx, "alice@example.com", "Passw0rd"); !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("disabled account error = %v, want ErrAccountDisabled", err)
	}
}

func TestAuthenticateSurvivesLastLoginFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	repo.failUpdateLogin = true
	svc := NewCredentialService(repo, 8, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "Passw0rd", "Alice"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := svc.Authenticate(ctx, "alice@example.com", "Passw0rd"); err != nil {
		t.Errorf("Authenticate() error = %v, want success despite last_login failure", err)
	}
}
