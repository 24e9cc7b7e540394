package jwtverifier

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/platform/config"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Verifier validates HS256 bearer tokens signed with a shared secret.
type Verifier struct {
	cfg    config.JWTConfig
	clock  Clock
	parser *jwt.Parser
}

func New(cfg config.JWTConfig) *Verifier {
	return NewWithOptions(cfg, nil)
}

func NewWithOptions(cfg config.JWTConfig, clock Clock) *Verifier {
	if clock == nil {
		clock = realClock{}
	}
	return &Verifier{
		cfg:   cfg,
		clock: clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(cfg.ClockSkew),
			jwt.WithTimeFunc(clock.Now),
		),
	}
}

// Verify verifies a JWT and returns the authenticated subject from the `sub` claim.
//
// Verification:
// - HS256 signature using the configured secret
// - iss, aud, exp, and nbf (when present)
func (v *Verifier) Verify(_ context.Context, token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(v.cfg.Secret), nil
	})
	if err != nil {
		return "", ErrUnauthorized
	}
	if claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}

// Mint signs an HS256 token for sub valid for ttl from now. Used by local
// tooling and tests.
func Mint(cfg config.JWTConfig, sub string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   sub,
		Audience:  jwt.ClaimStrings{cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}
