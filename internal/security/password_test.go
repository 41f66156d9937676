package security

import (
	"testing"
	"time"
)

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	// Cost 4 keeps the test fast; verification logic is cost-independent.
	digest, err := HashPasswordWithCost("correct horse battery staple", 4)
	if err != nil {
		t.Fatalf("HashPasswordWithCost error: %v", err)
	}

	if !VerifyPassword("correct horse battery staple", digest) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("wrong password", digest) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestVerifyPassword_MalformedDigest(t *testing.T) {
	t.Parallel()

	// A garbage digest must read as "no match", never panic or error.
	if VerifyPassword("anything", []byte("not-a-bcrypt-digest")) {
		t.Fatalf("malformed digest must not verify")
	}
	if VerifyPassword("anything", nil) {
		t.Fatalf("nil digest must not verify")
	}
}

func TestBurnVerification_TakesComparableTime(t *testing.T) {
	t.Parallel()

	digest, err := HashPassword("some password")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	start := time.Now()
	VerifyPassword("some password", digest)
	realCost := time.Since(start)

	start = time.Now()
	BurnVerification("some password")
	burnCost := time.Since(start)

	// Both paths run a full bcrypt comparison at the same cost factor; the
	// burn must not be orders of magnitude cheaper.
	if burnCost < realCost/10 {
		t.Fatalf("burn comparison too cheap: real=%v burn=%v", realCost, burnCost)
	}
}
