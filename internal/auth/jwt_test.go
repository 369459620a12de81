package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/preskrba/internal/model"
)

func TestIssueAndValidate(t *testing.T) {
	branch := int64(3)
	iss := NewIssuer("test-secret", 0)

	token, err := iss.Issue(&model.User{ID: 7, Username: "sara", Role: model.RoleSupervisor, LocationID: &branch})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := iss.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	actor := claims.Actor()
	if actor.UserID != 7 || actor.Username != "sara" || actor.Role != model.RoleSupervisor {
		t.Errorf("unexpected actor: %+v", actor)
	}
	if actor.LocationID == nil || *actor.LocationID != branch {
		t.Errorf("expected location %d, got %v", branch, actor.LocationID)
	}
	if !actor.ActsFor(branch) || actor.ActsFor(branch+1) {
		t.Error("supervisor should act only for the home branch")
	}

	want := time.Now().Add(DefaultTTL)
	if d := claims.ExpiresAt.Time.Sub(want); d > time.Minute || d < -time.Minute {
		t.Errorf("expiry off by %v", d)
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	iss := NewIssuer("s", time.Hour)
	u := &model.User{ID: 1, Username: "a", Role: model.RoleAdmin}

	a, _ := iss.Issue(u)
	b, _ := iss.Issue(u)
	ca, err := iss.Validate(a)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	cb, err := iss.Validate(b)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ca.ID == cb.ID {
		t.Error("expected distinct token ids")
	}
}

func TestValidateRejects(t *testing.T) {
	iss := NewIssuer("secret1", time.Hour)
	u := &model.User{ID: 1, Username: "a", Role: model.RoleAdmin}

	token, _ := iss.Issue(u)
	if _, err := NewIssuer("secret2", time.Hour).Validate(token); err == nil {
		t.Error("expected error for wrong secret")
	}
	if _, err := iss.Validate("not-a-token"); err == nil {
		t.Error("expected error for garbage")
	}

	fallback, _ := NewIssuer("secret1", -time.Hour).Issue(u) // negative ttl falls back to the default
	if _, err := iss.Validate(fallback); err != nil {
		t.Errorf("default ttl token should be valid: %v", err)
	}

	old := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, _ := old.SignedString([]byte("secret1"))
	if _, err := iss.Validate(signed); err == nil {
		t.Error("expected error for expired token")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodHS384, Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{ID: "y"}})
	signed, _ = none.SignedString([]byte("secret1"))
	if _, err := iss.Validate(signed); err == nil {
		t.Error("expected error for unexpected signing method")
	}
}
