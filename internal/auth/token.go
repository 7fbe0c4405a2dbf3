package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token validation failures. The session resolver folds both into
// apperr.ErrUnauthenticated before anything reaches a client.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// TokenConfig is loaded once at startup and never changes during a run.
type TokenConfig struct {
	Secret    string `env:"JWT_SECRET_KEY,required"`
	Algorithm string `env:"JWT_ALGORITHM" envDefault:"HS256"`
	// TTLMinutes mirrors JWT_ACCESS_TOKEN_EXPIRE_MINUTES; TTL wins when set.
	TTLMinutes int `env:"JWT_ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	TTL        time.Duration
}

func (c TokenConfig) ttl() time.Duration {
	if c.TTL != 0 {
		return c.TTL
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}

// TokenService issues and validates HMAC-signed JWT bearer tokens. It holds
// only immutable configuration and is safe for concurrent use.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", cfg.Algorithm)
	}
	ttl := cfg.ttl()
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &TokenService{secret: []byte(cfg.Secret), method: method, ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for subject that expires at now+TTL.
func (s *TokenService) Issue(subject string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies token and returns its subject, which may be empty. A token
// is expired once now reaches its exp claim.
func (s *TokenService) Decode(token string, now time.Time) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)
	switch {
	case err == nil:
		return claims.Subject, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpiredToken
	default:
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}
