// Package jwt signs and parses forum auth tokens.
package jwt

import (
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/golang-jwt/jwt/v5"
)

// Signer issues and verifies HS256 tokens
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// New creates a Signer
func New(secret []byte, ttl time.Duration) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty jwt secret")
	}
	if ttl <= 0 {
		return nil, errors.Errorf("invalid token ttl %s", ttl)
	}

	return &Signer{secret: secret, ttl: ttl}, nil
}

// Sign issues a token for the user
func (s *Signer) Sign(userID, nick string) (string, error) {
	now := gutils.Clock.GetUTCNow()
	claims := &UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Nick: nick,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}

	return token, nil
}

// Parse verifies token and returns its claims
func (s *Signer) Parse(token string) (*UserClaims, error) {
	claims := new(UserClaims)
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(gutils.Clock.GetUTCNow),
	)
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}

	if claims.Subject == "" {
		return nil, errors.New("token without subject")
	}

	return claims, nil
}
