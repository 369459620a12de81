package model

import (
	"fmt"
	"time"
)

// User represents an authentication user.
// LocationID is the user's home branch; supervisors act only on it.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	LocationID   *int64     `json:"location_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleSupervisor = "supervisor"
	RoleUser       = "user"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleSupervisor, RoleUser:
		return true
	}
	return false
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:      4,
		RoleManager:    3,
		RoleSupervisor: 2,
		RoleUser:       1,
	}
	return levels[role] >= levels[minimum] && levels[minimum] > 0
}

// ValidatePassword checks password requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Actor is the user on whose behalf a workflow operation runs.
type Actor struct {
	UserID     int64
	Username   string
	Role       string
	LocationID *int64
}

// ActsFor reports whether the actor may act on behalf of the given location.
// Managers and admins act for every location; supervisors only for their own.
func (a Actor) ActsFor(locationID int64) bool {
	if RoleAtLeast(a.Role, RoleManager) {
		return true
	}
	return a.LocationID != nil && *a.LocationID == locationID
}
