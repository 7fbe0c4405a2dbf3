package book

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	accountrepo "github.com/ovaphlow/pitchfork/service-catalog/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/author"
	authorrepo "github.com/ovaphlow/pitchfork/service-catalog/internal/author/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/book/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/book/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/database"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Input is the body of a create request.
type Input struct {
	Year     int    `json:"year"`
	Title    string `json:"title"`
	AuthorID int64  `json:"author_id"`
}

// Patch is the body of an update request. Nil fields are left unchanged.
type Patch struct {
	Year     *int    `json:"year"`
	Title    *string `json:"title"`
	AuthorID *int64  `json:"author_id"`
}

var (
	ErrBookNotFound = apperr.New(apperr.ErrNotFound, "Book does not exist")
	ErrBookExists   = apperr.New(apperr.ErrConflict, "Book already exists")
)

// Service manages books. Reads are public; writes need a valid bearer token.
type Service struct {
	db       *sqlx.DB
	ids      *utilities.IDGenerator
	sessions *auth.Resolver
}

func NewService(db *sqlx.DB, ids *utilities.IDGenerator, sessions *auth.Resolver) *Service {
	return &Service{db: db, ids: ids, sessions: sessions}
}

func (s *Service) Create(ctx context.Context, bearer string, in Input) (*entity.Book, error) {
	var created *entity.Book
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := s.sessions.RequireAuthenticated(ctx, accountrepo.NewAccountRepo(tx), bearer); err != nil {
			return err
		}
		title, err := normalizeTitle(in.Title)
		if err != nil {
			return err
		}
		if err := ensureAuthor(ctx, tx, in.AuthorID); err != nil {
			return err
		}
		books := repo.NewBookRepo(tx)
		if err := ensureFree(ctx, books, title, 0); err != nil {
			return err
		}
		now := s.sessions.Now().UTC()
		b := &entity.Book{
			ID:        s.ids.Next(),
			Year:      in.Year,
			Title:     title,
			AuthorID:  in.AuthorID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := books.Create(ctx, b); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err = translate(err); err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies the non-nil fields of p.
func (s *Service) Update(ctx context.Context, bearer string, id int64, p Patch) (*entity.Book, error) {
	var updated *entity.Book
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := s.sessions.RequireAuthenticated(ctx, accountrepo.NewAccountRepo(tx), bearer); err != nil {
			return err
		}
		books := repo.NewBookRepo(tx)
		b, err := find(ctx, books, id)
		if err != nil {
			return err
		}
		if p.Title != nil {
			title, err := normalizeTitle(*p.Title)
			if err != nil {
				return err
			}
			if err := ensureFree(ctx, books, title, b.ID); err != nil {
				return err
			}
			b.Title = title
		}
		if p.Year != nil {
			b.Year = *p.Year
		}
		if p.AuthorID != nil {
			if err := ensureAuthor(ctx, tx, *p.AuthorID); err != nil {
				return err
			}
			b.AuthorID = *p.AuthorID
		}
		b.UpdatedAt = s.sessions.Now().UTC()
		if err := books.Update(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err = translate(err); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, bearer string, id int64) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := s.sessions.RequireAuthenticated(ctx, accountrepo.NewAccountRepo(tx), bearer); err != nil {
			return err
		}
		err := repo.NewBookRepo(tx).Delete(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrBookNotFound
		}
		return err
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Book, error) {
	return find(ctx, repo.NewBookRepo(s.db), id)
}

// List returns a page of books matching f.
func (s *Service) List(ctx context.Context, f repo.Filter) ([]*entity.Book, error) {
	f.Title = strings.ToLower(strings.TrimSpace(f.Title))
	f.Page = f.Page.Clamp()
	return repo.NewBookRepo(s.db).List(ctx, f)
}

// translate maps constraint violations that slipped past the checks inside
// the transaction.
func translate(err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return ErrBookExists
	case database.IsForeignKeyViolation(err):
		return author.ErrAuthorNotFound
	default:
		return err
	}
}

func find(ctx context.Context, books *repo.BookRepo, id int64) (*entity.Book, error) {
	b, err := books.FindByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrBookNotFound
	}
	return b, err
}

func ensureAuthor(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := authorrepo.NewAuthorRepo(tx).FindByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return author.ErrAuthorNotFound
	}
	return err
}

func ensureFree(ctx context.Context, books *repo.BookRepo, title string, self int64) error {
	other, err := books.FindByTitle(ctx, title)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != self:
		return ErrBookExists
	default:
		return nil
	}
}

func normalizeTitle(raw string) (string, error) {
	title := utilities.SanitizeName(raw)
	if title == "" {
		return "", apperr.New(apperr.ErrInvalidInput, "title is required")
	}
	return title, nil
}
