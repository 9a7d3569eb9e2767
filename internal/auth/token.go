package auth

import (
	"fmt"
	"time"

	"github.com/coop-records-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the persisted form of a Session. Clients keep the
// signed token in local storage, send it on every request, and discard
// it at logout.
type SessionClaims struct {
	jwt.RegisteredClaims
	Tier    models.Tier `json:"tier"`
	Plate   string      `json:"plate,omitempty"`
	OwnerID string      `json:"owner_id,omitempty"`
}

// TokenManager signs and verifies session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a TokenManager with the given HMAC secret and
// session lifetime.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token carrying the session.
func (tm *TokenManager) Issue(s *models.Session) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			Issuer:    "coop-records-api",
		},
		Tier:    s.Tier,
		Plate:   s.Plate,
		OwnerID: s.OwnerID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Verify parses a token string back into the Session it carries.
func (tm *TokenManager) Verify(tokenString string) (*models.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}

	return &models.Session{
		Identity: claims.Subject,
		Tier:     claims.Tier,
		Plate:    claims.Plate,
		OwnerID:  claims.OwnerID,
	}, nil
}
