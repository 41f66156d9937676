package security

import (
	"testing"
	"time"

	"loomchat/api/internal/models"
)

func TestIssueAndParseSessionToken(t *testing.T) {
	t.Parallel()

	secret := "test-secret"
	token, err := IssueSessionToken(secret, "user-123", models.UserRoleUser, time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken error: %v", err)
	}

	identity, err := ParseSessionToken(token, secret)
	if err != nil {
		t.Fatalf("ParseSessionToken error: %v", err)
	}
	if identity.UserID != "user-123" {
		t.Fatalf("subject mismatch: got %q want %q", identity.UserID, "user-123")
	}
	if identity.Role != models.UserRoleUser {
		t.Fatalf("role mismatch: got %q", identity.Role)
	}
	if !identity.ExpiresAt.After(time.Now()) {
		t.Fatalf("expiry should be in the future, got %v", identity.ExpiresAt)
	}
}

func TestParseSessionToken_Expired(t *testing.T) {
	t.Parallel()

	token, err := IssueSessionToken("secret", "u1", models.UserRoleUser, -time.Minute)
	if err != nil {
		t.Fatalf("IssueSessionToken error: %v", err)
	}

	if _, err := ParseSessionToken(token, "secret"); err == nil {
		t.Fatalf("expected error for expired token, got nil")
	}
}

func TestParseSessionToken_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := IssueSessionToken("right-secret", "u2", models.UserRoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken error: %v", err)
	}

	if _, err := ParseSessionToken(token, "wrong-secret"); err == nil {
		t.Fatalf("expected error for bad signature, got nil")
	}
}

func TestParseSessionToken_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := ParseSessionToken("not.a.jwt", "secret"); err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}

func TestParseSessionToken_RoleSnapshotSurvives(t *testing.T) {
	t.Parallel()

	// The role embedded at issue time is what comes back; the validator
	// never consults the store.
	token, err := IssueSessionToken("secret", "u3", models.UserRoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken error: %v", err)
	}

	identity, err := ParseSessionToken(token, "secret")
	if err != nil {
		t.Fatalf("ParseSessionToken error: %v", err)
	}
	if identity.Role != models.UserRoleAdmin {
		t.Fatalf("expected admin role snapshot, got %q", identity.Role)
	}
}
