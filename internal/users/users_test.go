package users

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/xelth-com/eckclaims/internal/config"
	"github.com/xelth-com/eckclaims/internal/database"
	"github.com/xelth-com/eckclaims/internal/models"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"), config.DatabaseConfig{MaxOpenConns: 1, Quiet: true})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return NewStore(db.DB)
}

func TestSignupRoles(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	first, err := store.Signup(ctx, SignupInput{Username: "owner", Password: "pw"}, false)
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if first.Role != models.RoleAdmin {
		t.Errorf("First account should be admin, got %s", first.Role)
	}

	second, err := store.Signup(ctx, SignupInput{Username: "mallory", Password: "pw", Role: "admin"}, false)
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if second.Role != models.RoleUser {
		t.Errorf("Self-service signup must not grant admin, got %s", second.Role)
	}

	third, err := store.Signup(ctx, SignupInput{Username: "deputy", Password: "pw", Role: "admin"}, true)
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if third.Role != models.RoleAdmin {
		t.Errorf("Admin caller should grant admin, got %s", third.Role)
	}

	if _, err := store.Signup(ctx, SignupInput{Username: "owner", Password: "x"}, false); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Expected ErrUsernameTaken, got %v", err)
	}
	if _, err := store.Signup(ctx, SignupInput{Username: "", Password: "x"}, false); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthenticateAndChangePassword(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if _, err := store.Signup(ctx, SignupInput{Username: "alice", Password: "old"}, false); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	if _, err := store.Authenticate(ctx, "alice", "old"); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if _, err := store.Authenticate(ctx, "alice", "bad"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := store.Authenticate(ctx, "ghost", "old"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	if err := store.ChangePassword(ctx, "alice", "wrong", "new"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if err := store.ChangePassword(ctx, "alice", "old", "new"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := store.Authenticate(ctx, "alice", "new"); err != nil {
		t.Errorf("New password rejected: %v", err)
	}
}
