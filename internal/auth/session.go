package auth

import (
	"context"
	"errors"
	"time"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
)

// AccountFinder is the persistence lookup the resolver needs. repo.AccountRepo
// implements it.
type AccountFinder interface {
	FindOneBy(ctx context.Context, field string, value any) (*entity.Account, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Resolver maps a bearer token to the account it was issued for. Every request
// resolves independently; there is no server-side session store.
type Resolver struct {
	tokens *TokenService
	clock  Clock
}

func NewResolver(tokens *TokenService, clock Clock) *Resolver {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Resolver{tokens: tokens, clock: clock}
}

// Resolve decodes token at now and loads the account whose email is the
// token subject. Bad signature, expiry, a missing subject and an unknown
// subject all return apperr.ErrUnauthenticated; only lookup failures other
// than a miss are passed through.
func (r *Resolver) Resolve(ctx context.Context, accounts AccountFinder, token string, now time.Time) (*entity.Account, error) {
	subject, err := r.tokens.Decode(token, now)
	if err != nil || subject == "" {
		return nil, apperr.ErrUnauthenticated
	}
	a, err := accounts.FindOneBy(ctx, "email", subject)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// RequireAuthenticated resolves token against the resolver's clock.
func (r *Resolver) RequireAuthenticated(ctx context.Context, accounts AccountFinder, token string) (*entity.Account, error) {
	if token == "" {
		return nil, apperr.ErrUnauthenticated
	}
	return r.Resolve(ctx, accounts, token, r.clock.Now())
}

// Now exposes the resolver's clock to callers that stamp records.
func (r *Resolver) Now() time.Time { return r.clock.Now() }
