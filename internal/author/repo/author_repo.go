package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/samber/oops"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/author/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/database"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

const authorColumns = `id, name, created_at, updated_at`

// Filter narrows List. An empty Name matches every author.
type Filter struct {
	Name string
	Page utilities.Page
}

type AuthorRepo struct {
	db database.Handle
}

func NewAuthorRepo(db database.Handle) *AuthorRepo { return &AuthorRepo{db: db} }

func (r *AuthorRepo) Create(ctx context.Context, a *entity.Author) error {
	q := r.db.Rebind(`INSERT INTO authors (` + authorColumns + `) VALUES (?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, a.ID, a.Name, a.CreatedAt, a.UpdatedAt); err != nil {
		return oops.Code("AUTHOR_CREATE_FAILED").
			With("name", a.Name).
			Wrap(err)
	}
	return nil
}

// FindByID returns the author or an error wrapping apperr.ErrNotFound.
func (r *AuthorRepo) FindByID(ctx context.Context, id int64) (*entity.Author, error) {
	return r.findOne(ctx, "id", id)
}

func (r *AuthorRepo) FindByName(ctx context.Context, name string) (*entity.Author, error) {
	return r.findOne(ctx, "name", name)
}

func (r *AuthorRepo) findOne(ctx context.Context, col string, value any) (*entity.Author, error) {
	q := r.db.Rebind(`SELECT ` + authorColumns + ` FROM authors WHERE ` + col + ` = ?`)
	var a entity.Author
	err := sqlx.GetContext(ctx, r.db, &a, q, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("AUTHOR_NOT_FOUND").
			With(col, value).
			Wrap(apperr.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("AUTHOR_GET_FAILED").
			With(col, value).
			Wrap(err)
	}
	return &a, nil
}

// List returns authors ordered by name.
func (r *AuthorRepo) List(ctx context.Context, f Filter) ([]*entity.Author, error) {
	var (
		where []string
		args  []any
	)
	if f.Name != "" {
		where = append(where, `name LIKE ? ESCAPE '\'`)
		args = append(args, utilities.ContainsPattern(f.Name))
	}
	q := `SELECT ` + authorColumns + ` FROM authors`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY name, id LIMIT ? OFFSET ?`
	page := f.Page.Clamp()
	args = append(args, page.Limit, page.Offset)

	authors := []*entity.Author{}
	if err := sqlx.SelectContext(ctx, r.db, &authors, r.db.Rebind(q), args...); err != nil {
		return nil, oops.Code("AUTHOR_LIST_FAILED").Wrap(err)
	}
	return authors, nil
}

// Update overwrites name and updated_at.
func (r *AuthorRepo) Update(ctx context.Context, a *entity.Author) error {
	q := r.db.Rebind(`UPDATE authors SET name = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, a.Name, a.UpdatedAt, a.ID)
	if err != nil {
		return oops.Code("AUTHOR_UPDATE_FAILED").
			With("id", a.ID).
			Wrap(err)
	}
	return requireRow(res, a.ID)
}

// Delete removes the author. Its books go with it.
func (r *AuthorRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM authors WHERE id = ?`), id)
	if err != nil {
		return oops.Code("AUTHOR_DELETE_FAILED").
			With("id", id).
			Wrap(err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return oops.Code("AUTHOR_NOT_FOUND").
			With("id", id).
			Wrap(apperr.ErrNotFound)
	}
	return nil
}
