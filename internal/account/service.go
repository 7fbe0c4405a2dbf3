package account

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/account/entity"
	accountrepo "github.com/ovaphlow/pitchfork/service-catalog/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/database"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Input is the body of registration and update requests.
type Input struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// normalize validates the input and returns it in stored form.
func (in Input) normalize() (Input, error) {
	out := Input{Username: utilities.SanitizeName(in.Username), Password: in.Password}
	if out.Username == "" {
		return Input{}, apperr.New(apperr.ErrInvalidInput, "username is required")
	}
	email, ok := utilities.NormalizeEmail(in.Email)
	if !ok {
		return Input{}, apperr.New(apperr.ErrInvalidInput, "email is not a valid address")
	}
	out.Email = email
	if out.Password == "" {
		return Input{}, apperr.New(apperr.ErrInvalidInput, "password is required")
	}
	return out, nil
}

// Service orchestrates the account lifecycle: registration and self-service
// update and deletion.
type Service struct {
	db       *sqlx.DB
	ids      *utilities.IDGenerator
	hasher   auth.PasswordHasher
	sessions *auth.Resolver
}

func NewService(db *sqlx.DB, ids *utilities.IDGenerator, hasher auth.PasswordHasher, sessions *auth.Resolver) *Service {
	return &Service{db: db, ids: ids, hasher: hasher, sessions: sessions}
}

var errDuplicateAccount = apperr.New(apperr.ErrConflict, "Username or email already exists")

// Register creates an account. The password is stored only as a hash.
func (s *Service) Register(ctx context.Context, in Input) (*entity.Account, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.sessions.Now().UTC()
	a := &entity.Account{
		ID:        s.ids.Next(),
		Username:  in.Username,
		Email:     in.Email,
		Password:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		accounts := accountrepo.NewAccountRepo(tx)
		if err := ensureFree(ctx, accounts, "username", in.Username, "Username already exists"); err != nil {
			return err
		}
		if err := ensureFree(ctx, accounts, "email", in.Email, "Email already exists"); err != nil {
			return err
		}
		return accounts.Create(ctx, a)
	})
	if database.IsUniqueViolation(err) {
		return nil, errDuplicateAccount
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Update replaces the caller's own username, email and password.
func (s *Service) Update(ctx context.Context, bearer string, targetID int64, in Input) (*entity.Account, error) {
	var updated *entity.Account
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		accounts := accountrepo.NewAccountRepo(tx)
		identity, err := s.sessions.RequireAuthenticated(ctx, accounts, bearer)
		if err != nil {
			return err
		}
		if err := auth.RequireOwner(identity, targetID); err != nil {
			return err
		}
		norm, err := in.normalize()
		if err != nil {
			return err
		}
		hash, err := s.hasher.Hash(norm.Password)
		if err != nil {
			return err
		}
		identity.Username = norm.Username
		identity.Email = norm.Email
		identity.Password = hash
		identity.UpdatedAt = s.sessions.Now().UTC()
		if err := accounts.Update(ctx, identity); err != nil {
			return err
		}
		updated = identity
		return nil
	})
	if database.IsUniqueViolation(err) {
		return nil, errDuplicateAccount
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the caller's own account.
func (s *Service) Delete(ctx context.Context, bearer string, targetID int64) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		accounts := accountrepo.NewAccountRepo(tx)
		identity, err := s.sessions.RequireAuthenticated(ctx, accounts, bearer)
		if err != nil {
			return err
		}
		if err := auth.RequireOwner(identity, targetID); err != nil {
			return err
		}
		return accounts.Delete(ctx, identity.ID)
	})
}

// Me returns the account behind bearer.
func (s *Service) Me(ctx context.Context, bearer string) (*entity.Account, error) {
	return s.sessions.RequireAuthenticated(ctx, accountrepo.NewAccountRepo(s.db), bearer)
}

func ensureFree(ctx context.Context, accounts *accountrepo.AccountRepo, field, value, detail string) error {
	_, err := accounts.FindOneBy(ctx, field, value)
	switch {
	case err == nil:
		return apperr.New(apperr.ErrConflict, "%s", detail)
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	default:
		return err
	}
}
