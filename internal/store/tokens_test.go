package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/preskrba/internal/db"
)

func TestRevokeToken(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	revoked, err := IsTokenRevoked(ctx, database, "jti-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if revoked {
		t.Error("fresh token reported revoked")
	}

	for i := 0; i < 2; i++ {
		if err := RevokeToken(ctx, database, "jti-1", time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("RevokeToken #%d: %v", i+1, err)
		}
	}

	if revoked, _ = IsTokenRevoked(ctx, database, "jti-1"); !revoked {
		t.Error("expected jti-1 to be revoked")
	}
	if revoked, _ = IsTokenRevoked(ctx, database, "jti-2"); revoked {
		t.Error("jti-2 should not be revoked")
	}
}

func TestPurgeExpiredTokens(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	now := time.Now()
	if err := RevokeToken(ctx, database, "live", now.Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if _, err := database.Exec(`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		"stale", now.Add(-time.Hour).UTC()); err != nil {
		t.Fatalf("inserting stale revocation: %v", err)
	}

	n, err := PurgeExpiredTokens(ctx, database, now)
	if err != nil {
		t.Fatalf("PurgeExpiredTokens: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged revocation, got %d", n)
	}
	if revoked, _ := IsTokenRevoked(ctx, database, "live"); !revoked {
		t.Error("unexpired revocation was purged")
	}
}
