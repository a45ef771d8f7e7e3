package session

import (
	"errors"
	"time"

	"agrofunnel/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "agrofunnel"

// Tokens issues and verifies the HS256 bearer tokens bound to a session id.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for sessionID and returns it with its expiry.
func (t *Tokens) Issue(sessionID string) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify returns the session id carried by a valid token.
func (t *Tokens) Verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.NewError(domain.KindUnauthenticated, "session token expired, start a new session")
		}
		return "", domain.NewError(domain.KindUnauthenticated, "invalid session token")
	}
	if claims.Subject == "" {
		return "", domain.NewError(domain.KindUnauthenticated, "invalid session token")
	}
	return claims.Subject, nil
}
