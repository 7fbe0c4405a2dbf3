package author

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	accountrepo "github.com/ovaphlow/pitchfork/service-catalog/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/author/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/author/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/database"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Input is the body of create and update requests.
type Input struct {
	Name string `json:"name"`
}

var (
	ErrAuthorNotFound = apperr.New(apperr.ErrNotFound, "Author does not exist")
	ErrAuthorExists   = apperr.New(apperr.ErrConflict, "Author already exists")
)

// Service manages authors. Reads are public; every write needs a valid
// bearer token but no ownership.
type Service struct {
	db       *sqlx.DB
	ids      *utilities.IDGenerator
	sessions *auth.Resolver
}

func NewService(db *sqlx.DB, ids *utilities.IDGenerator, sessions *auth.Resolver) *Service {
	return &Service{db: db, ids: ids, sessions: sessions}
}

func (s *Service) Create(ctx context.Context, bearer string, in Input) (*entity.Author, error) {
	var created *entity.Author
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := s.sessions.RequireAuthenticated(ctx, accountrepo.NewAccountRepo(tx), bearer); err != nil {
			return err
		}
		name, err := normalizeName(in.Name)
		if err != nil {
			return err
		}
		authors := repo.NewAuthorRepo(tx)
		if err := ensureFree(ctx, authors, name, 0); err != nil {
			return err
		}
		now := s.sessions.Now().UTC()
		a := &entity.Author{ID: s.ids.Next(), Name: name, CreatedAt: now, UpdatedAt: now}
		if err := authors.Create(ctx, a); err != nil {
			return err
		}
		created = a
		return nil
	})
	if database.IsUniqueViolation(err) {
		return nil, ErrAuthorExists
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update renames the author.
func (s *Service) Update(ctx context.Context, bearer string, id int64, in Input) (*entity.Author, error) {
	var updated *entity.Author
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := s.sessions.RequireAuthenticated(ctx, accountrepo.NewAccountRepo(tx), bearer); err != nil {
			return err
		}
		authors := repo.NewAuthorRepo(tx)
		a, err := find(ctx, authors, id)
		if err != nil {
			return err
		}
		name, err := normalizeName(in.Name)
		if err != nil {
			return err
		}
		if err := ensureFree(ctx, authors, name, a.ID); err != nil {
			return err
		}
		a.Name = name
		a.UpdatedAt = s.sessions.Now().UTC()
		if err := authors.Update(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if database.IsUniqueViolation(err) {
		return nil, ErrAuthorExists
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the author and, through the foreign key, its books.
func (s *Service) Delete(ctx context.Context, bearer string, id int64) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := s.sessions.RequireAuthenticated(ctx, accountrepo.NewAccountRepo(tx), bearer); err != nil {
			return err
		}
		err := repo.NewAuthorRepo(tx).Delete(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrAuthorNotFound
		}
		return err
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Author, error) {
	return find(ctx, repo.NewAuthorRepo(s.db), id)
}

// List returns a page of authors whose name contains f.Name.
func (s *Service) List(ctx context.Context, f repo.Filter) ([]*entity.Author, error) {
	f.Name = strings.ToLower(strings.TrimSpace(f.Name))
	f.Page = f.Page.Clamp()
	return repo.NewAuthorRepo(s.db).List(ctx, f)
}

func find(ctx context.Context, authors *repo.AuthorRepo, id int64) (*entity.Author, error) {
	a, err := authors.FindByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrAuthorNotFound
	}
	return a, err
}

// ensureFree fails with ErrAuthorExists when another author than self already
// holds name.
func ensureFree(ctx context.Context, authors *repo.AuthorRepo, name string, self int64) error {
	other, err := authors.FindByName(ctx, name)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != self:
		return ErrAuthorExists
	default:
		return nil
	}
}

func normalizeName(raw string) (string, error) {
	name := utilities.SanitizeName(raw)
	if name == "" {
		return "", apperr.New(apperr.ErrInvalidInput, "name is required")
	}
	return name, nil
}
