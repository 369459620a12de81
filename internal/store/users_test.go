package store

import (
	"context"
	"testing"

	"github.com/erazemk/preskrba/internal/db"
	"github.com/erazemk/preskrba/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "testuser", "hash123", model.RoleUser, nil)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", user.Username)
	}
	if user.Role != model.RoleUser {
		t.Errorf("expected role 'user', got %q", user.Role)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", got.Username)
	}
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice", "hash", model.RoleAdmin, nil)

	user, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.Username != "alice" {
		t.Errorf("expected 'alice', got %q", user.Username)
	}

	missing, err := GetUserByUsername(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestListUsers(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "a", "hash", model.RoleUser, nil)
	CreateUser(ctx, database, "b", "hash", model.RoleManager, nil)

	users, err := ListUsers(ctx, database)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}

func TestDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "deleteme", "hash", model.RoleUser, nil)
	DeleteUser(ctx, database, user.ID)

	users, _ := ListUsers(ctx, database)
	if len(users) != 0 {
		t.Errorf("expected 0 users after delete, got %d", len(users))
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "pwuser", "oldhash", model.RoleUser, nil)
	UpdateUserPassword(ctx, database, user.ID, "newhash")

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
}

func TestUserHomeLocation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	branch, err := CreateLocation(ctx, database, "Ljubljana", "lj", model.LocationTypeBranch)
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}

	user, err := CreateUser(ctx, database, "sup", "hash", model.RoleSupervisor, &branch.ID)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.LocationID == nil || *user.LocationID != branch.ID {
		t.Fatalf("expected location %d, got %v", branch.ID, user.LocationID)
	}

	if err := UpdateUser(ctx, database, user.ID, model.RoleUser, nil); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	got, _ := GetUser(ctx, database, user.ID)
	if got.LocationID != nil {
		t.Errorf("expected location cleared, got %v", *got.LocationID)
	}
	if got.Role != model.RoleUser {
		t.Errorf("expected role user, got %q", got.Role)
	}
}
