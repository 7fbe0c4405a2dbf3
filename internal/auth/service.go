package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Token is the body returned by login and refresh.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Service is what route handlers call for authentication decisions.
type Service struct {
	db       *sqlx.DB
	hasher   PasswordHasher
	tokens   *TokenService
	sessions *Resolver
	// dummyHash is compared against when the email is unknown so both login
	// failures cost one bcrypt comparison.
	dummyHash string
}

func NewService(db *sqlx.DB, hasher PasswordHasher, tokens *TokenService, sessions *Resolver) (*Service, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Service{db: db, hasher: hasher, tokens: tokens, sessions: sessions, dummyHash: dummy}, nil
}

// Login checks email and password and issues a token. A wrong password and
// an unknown email both return apperr.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	e, _ := utilities.NormalizeEmail(email)
	a, err := repo.NewAccountRepo(s.db).FindOneBy(ctx, "email", e)
	if errors.Is(err, apperr.ErrNotFound) {
		_, _ = s.hasher.Verify(password, s.dummyHash)
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	ok, err := s.hasher.Verify(password, a.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrInvalidCredentials
	}
	return s.issue(a.Email)
}

// Refresh issues a fresh token for the caller. The presented token stays
// valid until its own expiry.
func (s *Service) Refresh(ctx context.Context, bearer string) (*Token, error) {
	identity, err := s.CurrentIdentity(ctx, bearer)
	if err != nil {
		return nil, err
	}
	return s.issue(identity.Email)
}

// CurrentIdentity resolves the account behind a bearer token.
func (s *Service) CurrentIdentity(ctx context.Context, bearer string) (*entity.Account, error) {
	return s.sessions.RequireAuthenticated(ctx, repo.NewAccountRepo(s.db), bearer)
}

// AuthorizeOwnerMutation is RequireOwner for callers holding a Service.
func (s *Service) AuthorizeOwnerMutation(identity *entity.Account, targetID int64) error {
	return RequireOwner(identity, targetID)
}

func (s *Service) issue(subject string) (*Token, error) {
	signed, err := s.tokens.Issue(subject, s.sessions.Now())
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: signed, TokenType: "Bearer"}, nil
}
