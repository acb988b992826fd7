package mongo

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/electrix/tracker/internal/core/domain"
)

const refreshTTL = 30 * 24 * time.Hour

// accessClaims are carried by access tokens. jti names the backend session
// so signing out revokes every token issued for it.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (t tokenIssuer) sign(userID, email, sessionID string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// parse validates signature and, unless skipExpiry, the expiry. Any
// failure is domain.ErrUnauthenticated.
func (t tokenIssuer) parse(token string, skipExpiry bool) (*accessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if skipExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("access token expired: %w", domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("access token: %w", domain.ErrUnauthenticated)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("access token claims: %w", domain.ErrUnauthenticated)
	}
	return &claims, nil
}

// newRefreshToken returns a random refresh token and the hash to store.
func newRefreshToken() (token, hash string) {
	token = rand.Text()
	return token, hashToken(token)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
