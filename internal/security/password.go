package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the work factor used by every deployment; keep
// it in sync with config security.bcryptcost.
const DefaultBcryptCost = 12

func HashPassword(password string) ([]byte, error) {
	return HashPasswordWithCost(password, DefaultBcryptCost)
}

func HashPasswordWithCost(password string, cost int) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// VerifyPassword reports whether password matches the stored digest. A
// malformed digest counts as a mismatch rather than an error: callers treat
// every failure identically so nothing about the stored record leaks.
func VerifyPassword(password string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(password)) == nil
}

// dummyDigest is a well-formed cost-12 bcrypt digest. Login compares against
// it when no user record exists so the response time does not reveal whether
// an email is registered; the comparison result is always discarded.
var dummyDigest = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

// BurnVerification spends one bcrypt comparison without revealing anything.
func BurnVerification(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyDigest, []byte(password))
}
