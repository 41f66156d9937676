package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"loomchat/api/internal/models"
)

// SessionClaims are the only fields embedded in a session token: subject id,
// a role snapshot, and the registered issued-at/expiry pair. Nothing else.
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid token")

func IssueSessionToken(secret string, userID string, role models.UserRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ParseSessionToken verifies signature and expiry and maps the claims to an
// Identity. Every failure collapses to ErrInvalidToken; the caller logs the
// wrapped cause server-side and never tells the client which check failed.
func ParseSessionToken(tokenStr string, secret string) (models.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return models.Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return models.Identity{}, ErrInvalidToken
	}

	return models.Identity{
		UserID:    claims.Subject,
		Role:      models.UserRole(claims.Role),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
